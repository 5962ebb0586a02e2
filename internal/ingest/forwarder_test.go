package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"calibri-dashboard/internal/model"
)

type recordingSubmitter struct {
	mu      sync.Mutex
	records []model.SampleRecord
	err     error
	calls   int
	block   chan struct{}
}

func (r *recordingSubmitter) SubmitSample(ctx context.Context, record model.SampleRecord) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestForwarder_SubmitsRecordWithSessionID(t *testing.T) {
	sub := &recordingSubmitter{}
	f := NewForwarder(sub)

	f.Forward("sess-1", model.Sample{EMGEnvelope: 12.5, Accelerometer: model.Vector3{Y: -9.8}})
	f.Wait()

	if len(sub.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sub.records))
	}
	rec := sub.records[0]
	if rec.SessionID != "sess-1" || rec.EMGEnvelope != 12.5 || rec.AccelerometerY != -9.8 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestForwarder_FailureIsLoggedNotRetried(t *testing.T) {
	var logs syncBuffer
	sub := &recordingSubmitter{err: errors.New("connection refused")}
	f := NewForwarder(sub, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	f.Forward("sess-1", model.Sample{})
	f.Wait()

	if sub.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", sub.calls)
	}
	if !strings.Contains(logs.String(), "sample submission failed") {
		t.Fatalf("expected failure to be logged, got %q", logs.String())
	}
}

func TestForwarder_DoesNotBlockCaller(t *testing.T) {
	sub := &recordingSubmitter{block: make(chan struct{})}
	f := NewForwarder(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			f.Forward("sess-1", model.Sample{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Forward blocked on a slow submitter")
	}

	close(sub.block)
	f.Wait()
	if sub.calls != 10 {
		t.Fatalf("expected 10 submissions, got %d", sub.calls)
	}
}
