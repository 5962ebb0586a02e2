package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"calibri-dashboard/internal/auth"
	"calibri-dashboard/internal/client"
	"calibri-dashboard/internal/credential"
	"calibri-dashboard/internal/device"
	"calibri-dashboard/internal/hub"
	"calibri-dashboard/internal/model"
	"calibri-dashboard/internal/server"
	"calibri-dashboard/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type manualTicker struct {
	c chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               {}

type tickers struct {
	mu      sync.Mutex
	created []*manualTicker
}

func (ts *tickers) factory(d time.Duration) device.Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &manualTicker{c: make(chan time.Time)}
	ts.created = append(ts.created, t)
	return t
}

func (ts *tickers) fire(t *testing.T) {
	t.Helper()
	ts.mu.Lock()
	last := ts.created[len(ts.created)-1]
	ts.mu.Unlock()
	select {
	case last.c <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("ticker not consumed")
	}
}

type chanWriter struct {
	ch chan []byte
}

func (w *chanWriter) Write(message []byte) error {
	w.ch <- message
	return nil
}

func (w *chanWriter) Close() error { return nil }

type fixture struct {
	app      *App
	router   *gin.Engine
	tickers  *tickers
	tokens   credential.Store
	settings string
	samples  chan []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.New(filepath.Join(t.TempDir(), "emg.db"))
	t.Cleanup(func() { _ = st.Close() })
	hash, _ := auth.HashPassword("admin123")
	if _, err := st.EnsureAdmin(context.Background(), "admin@admin.com", hash, "Administrator"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	backend := httptest.NewServer(server.NewRouter(server.Deps{
		Store:       st,
		TokenConfig: auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"},
	}))
	t.Cleanup(backend.Close)

	f := &fixture{
		tickers:  &tickers{},
		tokens:   credential.NewMemoryStore(),
		settings: filepath.Join(t.TempDir(), "settings.yaml"),
		samples:  make(chan []byte, 100),
	}
	app, err := New(Options{
		Client:         client.New(backend.URL, f.tokens),
		SettingsFile:   f.settings,
		SessionOptions: []func(s *device.Session){device.WithTickerFactory(f.tickers.factory)},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(app.Close)
	app.hub.Subscribe(&hub.Subscriber{Topic: samplesTopic, Writer: &chanWriter{ch: f.samples}})

	f.app = app
	f.router = app.Router()
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) tick(t *testing.T) sampleMessage {
	t.Helper()
	f.tickers.fire(t)
	select {
	case raw := <-f.samples:
		var msg sampleMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for sample")
	}
	return sampleMessage{}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func TestRecordingForwardsToBackend(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@admin.com", "password": "admin123"}), http.StatusOK)
	expectStatus(t, f.do(http.MethodPost, "/api/device/connect", nil), http.StatusOK)
	expectStatus(t, f.do(http.MethodPost, "/api/device/recording/start", nil), http.StatusOK)

	sessionID := f.app.session.Snapshot().SessionID
	for i := 0; i < 3; i++ {
		msg := f.tick(t)
		if msg.Type != "sample" || !msg.Recording || msg.SessionID != sessionID || msg.Sensitivity != 50 {
			t.Fatalf("unexpected stream message %+v", msg)
		}
	}
	expectStatus(t, f.do(http.MethodPost, "/api/device/recording/stop", nil), http.StatusOK)

	w := f.do(http.MethodGet, "/api/device/history", nil)
	var hist struct {
		Samples []model.Sample `json:"samples"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &hist)
	if len(hist.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(hist.Samples))
	}

	f.app.forwarder.Wait()
	w = f.do(http.MethodGet, "/api/sessions", nil)
	expectStatus(t, w, http.StatusOK)
	var sessions []model.SessionSummary
	_ = json.Unmarshal(w.Body.Bytes(), &sessions)
	if len(sessions) != 1 || sessions[0].SessionID != sessionID || sessions[0].DataPoints != 3 {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	w = f.do(http.MethodGet, "/api/device/stats", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"samples":3`) {
		t.Fatalf("unexpected stats %s", w.Body.String())
	}
}

func TestRejectedForwardSignsOut(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@admin.com", "password": "admin123"}), http.StatusOK)
	if err := f.tokens.SetToken("not-a-valid-token"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	expectStatus(t, f.do(http.MethodPost, "/api/device/connect", nil), http.StatusOK)
	expectStatus(t, f.do(http.MethodPost, "/api/device/recording/start", nil), http.StatusOK)
	f.tick(t)
	f.app.forwarder.Wait()

	if tok, _ := f.tokens.Token(); tok != "" {
		t.Fatalf("expected token cleared after 401, got %q", tok)
	}
	if f.app.Auth().Authenticated() {
		t.Fatalf("expected signed out after 401 on forward")
	}
	expectStatus(t, f.do(http.MethodGet, "/api/auth/me", nil), http.StatusUnauthorized)
	expectStatus(t, f.do(http.MethodGet, "/api/sessions", nil), http.StatusUnauthorized)
}

func TestDeviceUsageErrorsAreConflicts(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(http.MethodPost, "/api/device/recording/start", nil), http.StatusConflict)
	expectStatus(t, f.do(http.MethodPost, "/api/device/recording/stop", nil), http.StatusConflict)
	expectStatus(t, f.do(http.MethodPost, "/api/device/connect", nil), http.StatusOK)
	expectStatus(t, f.do(http.MethodPost, "/api/device/connect", nil), http.StatusConflict)

	w := f.do(http.MethodPost, "/api/device/disconnect", nil)
	expectStatus(t, w, http.StatusOK)
	var snap device.Snapshot
	_ = json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.Connected || snap.Recording || snap.SessionID != "" {
		t.Fatalf("unexpected snapshot after disconnect %+v", snap)
	}
	expectStatus(t, f.do(http.MethodPost, "/api/device/disconnect", nil), http.StatusOK)
}

func TestSettingsAreClampedAndPersisted(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPut, "/api/device/settings", map[string]int{"update_frequency_ms": 5})
	expectStatus(t, w, http.StatusOK)
	var got model.Settings
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.UpdateFrequencyMs != device.MinUpdateFrequencyMs {
		t.Fatalf("expected clamp to %d, got %d", device.MinUpdateFrequencyMs, got.UpdateFrequencyMs)
	}
	if got.Sensitivity != 50 {
		t.Fatalf("expected untouched sensitivity 50, got %d", got.Sensitivity)
	}

	saved, err := device.LoadSettings(f.settings)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if saved != got {
		t.Fatalf("expected persisted %+v, got %+v", got, saved)
	}
}

func TestStreamCarriesCurrentSensitivity(t *testing.T) {
	f := newFixture(t)

	expectStatus(t, f.do(http.MethodPost, "/api/device/connect", nil), http.StatusOK)
	if msg := f.tick(t); msg.Sensitivity != 50 {
		t.Fatalf("expected default sensitivity 50, got %d", msg.Sensitivity)
	}

	expectStatus(t, f.do(http.MethodPut, "/api/device/settings", map[string]int{"sensitivity": 500}), http.StatusOK)
	if msg := f.tick(t); msg.Sensitivity != device.MaxSensitivity {
		t.Fatalf("expected clamped sensitivity %d on the next frame, got %d", device.MaxSensitivity, msg.Sensitivity)
	}
}

func TestAuthValidationAndGuards(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "a@b.c", "password": "12345", "name": "A"})
	expectStatus(t, w, http.StatusBadRequest)
	if !strings.Contains(w.Body.String(), `"field":"password"`) {
		t.Fatalf("expected password field error, got %s", w.Body.String())
	}

	expectStatus(t, f.do(http.MethodGet, "/api/auth/me", nil), http.StatusUnauthorized)
	expectStatus(t, f.do(http.MethodGet, "/api/sessions", nil), http.StatusUnauthorized)
	expectStatus(t, f.do(http.MethodGet, "/api/admin/stats", nil), http.StatusUnauthorized)

	w = f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@admin.com", "password": "wrong1"})
	expectStatus(t, w, http.StatusUnauthorized)
	if !strings.Contains(w.Body.String(), "Invalid email or password") {
		t.Fatalf("expected backend detail, got %s", w.Body.String())
	}

	expectStatus(t, f.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "u@b.c", "password": "123456", "name": "U"}), http.StatusOK)
	expectStatus(t, f.do(http.MethodGet, "/api/admin/stats", nil), http.StatusForbidden)

	expectStatus(t, f.do(http.MethodPost, "/api/auth/logout", nil), http.StatusOK)
	if tok, _ := f.tokens.Token(); tok != "" {
		t.Fatalf("expected token cleared, got %q", tok)
	}
	expectStatus(t, f.do(http.MethodGet, "/api/auth/me", nil), http.StatusUnauthorized)
}

func TestAdminSurface(t *testing.T) {
	f := newFixture(t)
	expectStatus(t, f.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "admin@admin.com", "password": "admin123"}), http.StatusOK)

	w := f.do(http.MethodGet, "/api/admin/stats", nil)
	expectStatus(t, w, http.StatusOK)
	var st model.Stats
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Users != 1 {
		t.Fatalf("expected 1 user, got %+v", st)
	}

	expectStatus(t, f.do(http.MethodGet, "/api/admin/emg-data?limit=0", nil), http.StatusBadRequest)
	expectStatus(t, f.do(http.MethodGet, "/api/admin/emg-data?limit=10", nil), http.StatusOK)

	w = f.do(http.MethodDelete, "/api/admin/users/1", nil)
	expectStatus(t, w, http.StatusBadRequest)
	if !strings.Contains(w.Body.String(), "Cannot delete yourself") {
		t.Fatalf("expected backend detail, got %s", w.Body.String())
	}
}

func TestSupportChatAndHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/support/chat", map[string]string{"message": "how do I connect?"})
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Connect") {
		t.Fatalf("unexpected reply %s", w.Body.String())
	}

	w = f.do(http.MethodGet, "/health", nil)
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"backend":"ok"`) {
		t.Fatalf("unexpected health %s", w.Body.String())
	}
}

func TestWebSocketStream(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first map[string]any
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if first["type"] != "state" {
		t.Fatalf("expected initial state, got %v", first)
	}

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var pong map[string]any
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if pong["type"] != "pong" {
		t.Fatalf("expected pong, got %v", pong)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.app.hub.Count(samplesTopic) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("viewer never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	expectStatus(t, f.do(http.MethodPost, "/api/device/connect", nil), http.StatusOK)
	f.tick(t)

	var msg sampleMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != "sample" || msg.Recording || msg.SessionID == "" {
		t.Fatalf("unexpected sample message %+v", msg)
	}
}
