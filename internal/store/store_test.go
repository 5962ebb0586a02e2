package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"calibri-dashboard/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "emg.db"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_CreateUserAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "a@b.c", "hash", "Alice")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 || u.IsAdmin || u.CreatedAt == "" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := s.CreateUser(ctx, "a@b.c", "hash", "Again"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	got, hash, err := s.UserByEmail(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if got.ID != u.ID || hash != "hash" {
		t.Fatalf("unexpected lookup %+v %q", got, hash)
	}

	if _, _, err := s.UserByEmail(ctx, "missing@b.c"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.UserByID(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestStore_EnsureAdminIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.EnsureAdmin(ctx, "admin@admin.com", "hash", "Administrator")
	if err != nil || !created {
		t.Fatalf("expected admin created, got %v %v", created, err)
	}
	created, err = s.EnsureAdmin(ctx, "admin@admin.com", "other", "Administrator")
	if err != nil || created {
		t.Fatalf("expected no second admin, got %v %v", created, err)
	}

	admin, hash, err := s.UserByEmail(ctx, "admin@admin.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if !admin.IsAdmin || hash != "hash" {
		t.Fatalf("unexpected admin %+v %q", admin, hash)
	}
}

func TestStore_SamplesSessionsAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, _ := s.CreateUser(ctx, "a@b.c", "h", "Alice")
	bob, _ := s.CreateUser(ctx, "b@b.c", "h", "Bob")

	for i := 0; i < 3; i++ {
		if err := s.InsertSample(ctx, alice.ID, model.SampleRecord{SessionID: "s1", EMGEnvelope: float64(i)}); err != nil {
			t.Fatalf("InsertSample: %v", err)
		}
	}
	if err := s.InsertSample(ctx, alice.ID, model.SampleRecord{SessionID: "s2"}); err != nil {
		t.Fatalf("InsertSample: %v", err)
	}
	if err := s.InsertSample(ctx, bob.ID, model.SampleRecord{SessionID: "s3", GyroscopeZ: 1.5}); err != nil {
		t.Fatalf("InsertSample: %v", err)
	}

	sessions, err := s.Sessions(ctx, alice.ID)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %+v", sessions)
	}
	points := map[string]int64{}
	for _, sess := range sessions {
		points[sess.SessionID] = sess.DataPoints
		if sess.StartedAt == "" {
			t.Fatalf("expected started_at")
		}
	}
	if points["s1"] != 3 || points["s2"] != 1 {
		t.Fatalf("unexpected data points %v", points)
	}

	records, err := s.EMGRecords(ctx, 2)
	if err != nil {
		t.Fatalf("EMGRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected limit 2, got %d", len(records))
	}
	if records[0].SessionID != "s3" || records[0].UserEmail != "b@b.c" || records[0].GyroscopeZ != 1.5 {
		t.Fatalf("expected newest record first, got %+v", records[0])
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st != (model.Stats{Users: 2, EMGRecords: 5, Sessions: 3}) {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestStore_DeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, _ := s.CreateUser(ctx, "a@b.c", "h", "Alice")
	_ = s.InsertSample(ctx, u.ID, model.SampleRecord{SessionID: "s1"})

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("expected repeat delete to succeed, got %v", err)
	}

	st, _ := s.Stats(ctx)
	if st.Users != 0 || st.EMGRecords != 0 {
		t.Fatalf("expected cascade delete, got %+v", st)
	}
}

func TestStore_RevokedTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if revoked, _ := s.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("expected not revoked")
	}
	if err := s.RevokeToken(ctx, "jti-1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if revoked, err := s.IsRevoked(ctx, "jti-1"); err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}

	if err := s.RevokeToken(ctx, "jti-2", now.Add(3*time.Hour), now.Add(2*time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if revoked, _ := s.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("expected expired entry pruned")
	}
}
