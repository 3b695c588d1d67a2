// ABOUTME: Entry point for the agent-scope debugging console
// ABOUTME: Cobra root command, shared app wiring and colorized logging

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/agent-scope/internal/settings"
)

// Version is set by goreleaser at build time.
var version = "dev"

var (
	flagConfig   string
	flagServer   string
	flagToken    string
	flagLogLevel string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := &cobra.Command{
		Use:   "agent-scope",
		Short: "agent-scope — debugging console for conversational agent gateways",
		Long: "Probes a remote agent gateway for its identity, browses and manages its\n" +
			"stored conversations, and drives live streaming exchanges from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "settings file (default: $XDG_CONFIG_HOME/agent-scope/settings.yaml)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "gateway URL, overrides service_url from settings")
	root.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token, overrides auth_token from settings")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		discoverCmd(),
		chatsCmd(),
		replCmd(),
		statusCmd(),
		archiveCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the pieces every subcommand needs: loaded settings and a
// logger configured from them.
type app struct {
	cfg    *settings.Manager
	logger *slog.Logger
}

func newApp() (*app, error) {
	// Settings load failures are reported through a bootstrap logger;
	// the real one needs the loaded logging config.
	boot := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mgr, err := settings.NewManager(flagConfig, boot)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	logCfg := mgr.Get().Logging
	if flagLogLevel != "" {
		logCfg.Level = flagLogLevel
	}

	return &app{
		cfg:    mgr,
		logger: setupLogger(logCfg),
	}, nil
}

// serviceURL returns the effective gateway URL: the --server flag wins
// over the settings file. Empty means unconfigured.
func (a *app) serviceURL() string {
	if flagServer != "" {
		return flagServer
	}
	return a.cfg.Get().ServiceURL
}

// authToken returns the effective bearer token, empty for none.
func (a *app) authToken() string {
	if flagToken != "" {
		return flagToken
	}
	return a.cfg.Get().AuthToken
}

// archivePath returns the transcript archive location.
func (a *app) archivePath() string {
	if p := a.cfg.Get().ArchivePath; p != "" {
		return p
	}
	p, err := settings.DefaultArchivePath()
	if err != nil {
		return "archive.db" // fallback
	}
	return p
}

func setupLogger(cfg settings.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{level: level})
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs), then record attrs.
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// confirm prints a yes/no prompt and reads one line from stdin. Anything
// but y or yes declines.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
