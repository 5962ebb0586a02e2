package device

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"calibri-dashboard/internal/model"
	"calibri-dashboard/internal/signal"
	"github.com/google/uuid"
)

var (
	ErrAlreadyConnected = errors.New("device is already connected")
	ErrNotConnected     = errors.New("device is not connected")
	ErrAlreadyRecording = errors.New("recording is already in progress")
	ErrNotRecording     = errors.New("recording is not in progress")
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateRecording    State = "recording"
)

// Forwarder receives every sample appended to the history while recording.
// Forward is called with the session lock held and must not block.
type Forwarder interface {
	Forward(sessionID string, sample model.Sample)
}

// Listener observes every tick's sample. It runs on the ticker goroutine
// after the lock is released and must not call Disconnect or Close.
type Listener func(sessionID string, sample model.Sample, recording bool)

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	State         State          `json:"state"`
	Connected     bool           `json:"connected"`
	Recording     bool           `json:"recording"`
	SessionID     string         `json:"session_id,omitempty"`
	CurrentSample *model.Sample  `json:"current_sample,omitempty"`
	HistoryLength int            `json:"history_length"`
	Settings      model.Settings `json:"settings"`
}

// Session is the device connection and recording state machine:
// Disconnected -> Connected <-> Recording, with Disconnect valid from both
// connected states. At most one ticker goroutine runs per connection.
type Session struct {
	mu sync.Mutex

	newSource    func() signal.Source
	newTicker    TickerFactory
	newSessionID func() string
	forwarder    Forwarder
	listener     Listener
	logger       *slog.Logger

	connected bool
	recording bool
	sessionID string
	current   *model.Sample
	history   []model.Sample
	settings  model.Settings

	// generation invalidates ticks from a previous connection that are
	// still waiting on the lock.
	generation uint64
	stop       chan struct{}
	done       chan struct{}
}

func WithLogger(logger *slog.Logger) func(s *Session) {
	return func(s *Session) {
		s.logger = logger.With(slog.String("component", "device"))
	}
}

func WithForwarder(f Forwarder) func(s *Session) {
	return func(s *Session) {
		s.forwarder = f
	}
}

func WithListener(l Listener) func(s *Session) {
	return func(s *Session) {
		s.listener = l
	}
}

func WithSource(newSource func() signal.Source) func(s *Session) {
	return func(s *Session) {
		s.newSource = newSource
	}
}

func WithTickerFactory(f TickerFactory) func(s *Session) {
	return func(s *Session) {
		s.newTicker = f
	}
}

func WithSessionIDGenerator(f func() string) func(s *Session) {
	return func(s *Session) {
		s.newSessionID = f
	}
}

func WithSettings(settings model.Settings) func(s *Session) {
	return func(s *Session) {
		s.settings = ClampSettings(settings)
	}
}

func NewSession(options ...func(s *Session)) *Session {
	s := &Session{
		newSource:    func() signal.Source { return signal.NewSynthetic() },
		newTicker:    NewRealTicker,
		newSessionID: newSessionID,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		settings:     DefaultSettings(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// newSessionID returns a UUIDv7: millisecond timestamp plus randomness, so ids
// are unique and ordered within the process.
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Connect assigns a new session id and starts the periodic generator at the
// current update frequency. Later frequency changes apply on the next Connect.
func (s *Session) Connect() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return "", ErrAlreadyConnected
	}

	s.connected = true
	s.recording = false
	s.sessionID = s.newSessionID()
	s.current = nil
	s.generation++

	interval := time.Duration(s.settings.UpdateFrequencyMs) * time.Millisecond
	ticker := s.newTicker(interval)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.generation, s.newSource(), ticker, s.stop, s.done)

	s.logger.Info("device connected",
		slog.String("sessionID", s.sessionID),
		slog.Duration("interval", interval))
	return s.sessionID, nil
}

// Disconnect cancels the ticker, clears the session id and forces recording
// off. It is a no-op when already disconnected. In-flight forwards are not
// cancelled.
func (s *Session) Disconnect() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	wasConnected := s.connected
	sessionID := s.sessionID

	s.stop, s.done = nil, nil
	s.connected = false
	s.recording = false
	s.sessionID = ""
	s.current = nil
	s.generation++
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if wasConnected {
		s.logger.Info("device disconnected", slog.String("sessionID", sessionID))
	}
}

// Close releases the ticker. Safe to call multiple times.
func (s *Session) Close() {
	s.Disconnect()
}

func (s *Session) StartRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if s.recording {
		return ErrAlreadyRecording
	}
	s.history = nil
	s.recording = true
	s.logger.Info("recording started", slog.String("sessionID", s.sessionID))
	return nil
}

// StopRecording returns to Connected. The history is kept.
func (s *Session) StopRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return ErrNotRecording
	}
	s.recording = false
	s.logger.Info("recording stopped",
		slog.String("sessionID", s.sessionID),
		slog.Int("samples", len(s.history)))
	return nil
}

func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

func (s *Session) History() []model.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Sample, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) Settings() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings stores the clamped settings and returns them.
func (s *Session) UpdateSettings(settings model.Settings) model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = ClampSettings(settings)
	return s.settings
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         StateDisconnected,
		Connected:     s.connected,
		Recording:     s.recording,
		SessionID:     s.sessionID,
		HistoryLength: len(s.history),
		Settings:      s.settings,
	}
	if s.recording {
		snap.State = StateRecording
	} else if s.connected {
		snap.State = StateConnected
	}
	if s.current != nil {
		current := *s.current
		snap.CurrentSample = &current
	}
	return snap
}

func (s *Session) run(generation uint64, src signal.Source, ticker Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.tick(generation, src)
		}
	}
}

// tick runs to completion under the lock: a tick that starts while recording
// appends and forwards even if a Stop or Disconnect is already waiting.
func (s *Session) tick(generation uint64, src signal.Source) {
	s.mu.Lock()
	if !s.connected || s.generation != generation {
		s.mu.Unlock()
		return
	}

	sample := src.Generate()
	s.current = &sample
	sessionID := s.sessionID
	recording := s.recording
	if recording {
		s.history = append(s.history, sample)
		if s.forwarder != nil {
			s.forwarder.Forward(sessionID, sample)
		}
	}
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener(sessionID, sample, recording)
	}
}
