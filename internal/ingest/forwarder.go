package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"calibri-dashboard/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calibri_ingest_forwarded_total",
		Help: "Samples successfully submitted to the backend",
	})

	samplesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calibri_ingest_failed_total",
		Help: "Samples dropped after a failed submission",
	})

	samplesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calibri_ingest_in_flight",
		Help: "Sample submissions currently in flight",
	})
)

// Submitter persists one sample record. The transport client satisfies it.
type Submitter interface {
	SubmitSample(ctx context.Context, record model.SampleRecord) error
}

// Forwarder submits samples fire-and-forget: each Forward starts its own
// submission, failures are logged and dropped, nothing is retried. Submissions
// may complete out of order.
type Forwarder struct {
	submitter Submitter
	logger    *slog.Logger
	wg        sync.WaitGroup
}

func WithLogger(logger *slog.Logger) func(f *Forwarder) {
	return func(f *Forwarder) {
		f.logger = logger.With(slog.String("component", "ingest"))
	}
}

func NewForwarder(submitter Submitter, options ...func(f *Forwarder)) *Forwarder {
	f := &Forwarder{
		submitter: submitter,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// Forward never blocks on the network.
func (f *Forwarder) Forward(sessionID string, sample model.Sample) {
	record := model.NewSampleRecord(sessionID, sample)

	f.wg.Add(1)
	samplesInFlight.Inc()
	go func() {
		defer f.wg.Done()
		defer samplesInFlight.Dec()

		if err := f.submitter.SubmitSample(context.Background(), record); err != nil {
			samplesFailed.Inc()
			f.logger.Warn("sample submission failed",
				slog.String("sessionID", sessionID),
				slog.Int64("timestamp", sample.Timestamp),
				slog.String("error", err.Error()))
			return
		}
		samplesForwarded.Inc()
	}()
}

// Wait blocks until every in-flight submission has finished.
func (f *Forwarder) Wait() {
	f.wg.Wait()
}
