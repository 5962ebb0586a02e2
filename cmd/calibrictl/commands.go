package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"calibri-dashboard/internal/client"
	"calibri-dashboard/internal/config"
	"calibri-dashboard/internal/credential"
	"calibri-dashboard/internal/device"
	"calibri-dashboard/internal/ingest"
	"calibri-dashboard/internal/stats"
	"github.com/dustin/go-humanize"
)

const startedAtLayout = "2006-01-02T15:04:05.000"

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

type env struct {
	cfg    config.ClientConfig
	client *client.Client
	out    io.Writer
	logger *slog.Logger
}

var commands = map[string]command{
	"register":    {"register -email E -password P -name N", cmdRegister},
	"login":       {"login -email E -password P", cmdLogin},
	"logout":      {"logout", cmdLogout},
	"whoami":      {"whoami", cmdWhoami},
	"record":      {"record [-duration D]", cmdRecord},
	"sessions":    {"sessions", cmdSessions},
	"users":       {"users", cmdUsers},
	"records":     {"records [-limit N]", cmdRecords},
	"stats":       {"stats", cmdStats},
	"delete-user": {"delete-user -id ID", cmdDeleteUser},
	"health":      {"health", cmdHealth},
}

func usage(out io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "usage: calibrictl <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, args []string, out io.Writer, logger *slog.Logger) error {
	if len(args) == 0 {
		usage(out)
		return errors.New("missing command")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}

	e := &env{
		cfg:    cfg,
		client: client.New(cfg.BackendURL, credential.NewFileStore(cfg.TokenFile), client.WithHTTPClient(&http.Client{Timeout: 15 * time.Second})),
		out:    out,
		logger: logger,
	}
	return cmd.run(ctx, e, args[1:])
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("register", e.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := e.client.Register(ctx, *email, *password, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "registered %s (id %d)\n", user.Email, user.ID)
	return nil
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("login", e.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := e.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(e.out, "signed in as %s (%s)\n", user.Email, role)
	return nil
}

func cmdLogout(ctx context.Context, e *env, args []string) error {
	if err := e.client.Logout(ctx); err != nil {
		e.logger.Warn("backend logout failed", slog.String("error", err.Error()))
	}
	fmt.Fprintln(e.out, "signed out")
	return nil
}

func cmdWhoami(ctx context.Context, e *env, args []string) error {
	if !e.client.HasToken() {
		return errors.New("not signed in")
	}
	user, err := e.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s <%s> id=%d admin=%t\n", user.Name, user.Email, user.ID, user.IsAdmin)
	return nil
}

// cmdRecord runs a headless recording session and forwards every sample.
func cmdRecord(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("record", e.out)
	duration := fs.Duration("duration", 0, "recording length (default: recording duration setting)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !e.client.HasToken() {
		return errors.New("not signed in")
	}

	settings, err := device.LoadSettings(e.cfg.SettingsFile)
	if err != nil {
		return err
	}
	if *duration <= 0 {
		*duration = time.Duration(settings.RecordingDurationSec) * time.Second
	}

	forwarder := ingest.NewForwarder(e.client, ingest.WithLogger(e.logger))
	session := device.NewSession(
		device.WithSettings(settings),
		device.WithForwarder(forwarder),
		device.WithLogger(e.logger),
	)

	sessionID, err := session.Connect()
	if err != nil {
		return err
	}
	if err := session.StartRecording(); err != nil {
		session.Close()
		return err
	}
	fmt.Fprintf(e.out, "recording session %s for %s\n", sessionID, *duration)

	select {
	case <-ctx.Done():
	case <-time.After(*duration):
	}
	_ = session.StopRecording()
	history := session.History()
	session.Close()
	forwarder.Wait()

	sum := stats.Summarize(history, settings)
	fmt.Fprintf(e.out, "captured %s samples over %s\n", humanize.Comma(int64(sum.Samples)), sum.Duration.Round(time.Millisecond))
	fmt.Fprintf(e.out, "emg envelope min/mean/max %.1f / %.1f / %.1f\n", sum.EMGEnvelope.Min, sum.EMGEnvelope.Mean, sum.EMGEnvelope.Max)
	fmt.Fprintf(e.out, "activations above %d%%: %d\n", settings.ThresholdPercent, sum.Activations)
	return nil
}

func cmdSessions(ctx context.Context, e *env, args []string) error {
	sessions, err := e.client.Sessions(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tSTARTED\tPOINTS")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.SessionID, startedAgo(s.StartedAt), humanize.Comma(s.DataPoints))
	}
	return tw.Flush()
}

func cmdUsers(ctx context.Context, e *env, args []string) error {
	users, err := e.client.Users(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tADMIN\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", u.ID, u.Email, u.Name, u.IsAdmin, startedAgo(u.CreatedAt))
	}
	return tw.Flush()
}

func cmdRecords(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("records", e.out)
	limit := fs.Int("limit", 100, "maximum records")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := e.client.EMGData(ctx, *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tSESSION\tENVELOPE\tSIGNAL MAX\tTIME")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%s\n", r.ID, r.UserEmail, shortID(r.SessionID), r.EMGEnvelope, r.EMGSignalMax, r.Timestamp)
	}
	return tw.Flush()
}

func cmdStats(ctx context.Context, e *env, args []string) error {
	st, err := e.client.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "users:       %s\n", humanize.Comma(st.Users))
	fmt.Fprintf(e.out, "emg records: %s\n", humanize.Comma(st.EMGRecords))
	fmt.Fprintf(e.out, "sessions:    %s\n", humanize.Comma(st.Sessions))
	return nil
}

func cmdDeleteUser(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("delete-user", e.out)
	id := fs.Int64("id", 0, "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id is required")
	}

	if err := e.client.DeleteUser(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "deleted user %d\n", *id)
	return nil
}

func cmdHealth(ctx context.Context, e *env, args []string) error {
	h, err := e.client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s %s (%s)\n", e.client.BaseURL(), h.Status, h.Timestamp)
	return nil
}

func startedAgo(raw string) string {
	t, err := time.ParseInLocation(startedAtLayout, raw, time.UTC)
	if err != nil {
		return raw
	}
	return humanize.Time(t)
}

func shortID(id string) string {
	if i := strings.LastIndex(id, "-"); i > 0 && len(id)-i > 1 {
		return "…" + id[i+1:]
	}
	return id
}
