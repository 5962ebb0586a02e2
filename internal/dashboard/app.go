package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"calibri-dashboard/internal/authstate"
	"calibri-dashboard/internal/client"
	"calibri-dashboard/internal/device"
	"calibri-dashboard/internal/hub"
	"calibri-dashboard/internal/ingest"
	"calibri-dashboard/internal/model"
	"calibri-dashboard/internal/support"
)

const samplesTopic = "samples"

type Options struct {
	Client *client.Client
	// SettingsFile persists device settings; empty keeps them in memory.
	SettingsFile   string
	Logger         *slog.Logger
	SessionOptions []func(s *device.Session)
}

// App is the monitoring and admin surface: one device session, the signed-in
// user and the live sample stream.
type App struct {
	client       *client.Client
	auth         *authstate.State
	session      *device.Session
	forwarder    *ingest.Forwarder
	hub          *hub.Hub
	bot          *support.Bot
	settingsFile string
	logger       *slog.Logger
}

// sampleMessage is one live stream frame. Sensitivity is the chart gain
// viewers apply; it does not alter the sample.
type sampleMessage struct {
	Type        string       `json:"type"`
	SessionID   string       `json:"session_id"`
	Recording   bool         `json:"recording"`
	Sensitivity int          `json:"sensitivity"`
	Sample      model.Sample `json:"sample"`
}

func New(opts Options) (*App, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	settings := device.DefaultSettings()
	if opts.SettingsFile != "" {
		loaded, err := device.LoadSettings(opts.SettingsFile)
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
		settings = loaded
	}

	a := &App{
		client:       opts.Client,
		auth:         authstate.New(opts.Client),
		hub:          hub.New(),
		bot:          support.NewBot(),
		settingsFile: opts.SettingsFile,
		logger:       logger,
	}
	a.forwarder = ingest.NewForwarder(opts.Client, ingest.WithLogger(logger))

	sessionOptions := []func(s *device.Session){
		device.WithLogger(logger),
		device.WithSettings(settings),
		device.WithForwarder(a.forwarder),
		device.WithListener(a.publishSample),
	}
	a.session = device.NewSession(append(sessionOptions, opts.SessionOptions...)...)
	return a, nil
}

func (a *App) Auth() *authstate.State {
	return a.auth
}

func (a *App) Session() *device.Session {
	return a.session
}

func (a *App) publishSample(sessionID string, sample model.Sample, recording bool) {
	if a.hub.Count(samplesTopic) == 0 {
		return
	}
	out, err := json.Marshal(sampleMessage{
		Type:        "sample",
		SessionID:   sessionID,
		Recording:   recording,
		Sensitivity: a.session.Settings().Sensitivity,
		Sample:      sample,
	})
	if err != nil {
		a.logger.Error("encoding sample failed", slog.String("error", err.Error()))
		return
	}
	a.hub.Publish(samplesTopic, out)
}

// Close disconnects the device, drops live viewers and waits for in-flight
// sample submissions.
func (a *App) Close() {
	a.session.Close()
	a.hub.CloseAll()
	a.forwarder.Wait()
}
