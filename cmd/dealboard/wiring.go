package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/audio"
	"github.com/tinytelemetry/dealboard/internal/display"
	"github.com/tinytelemetry/dealboard/internal/gateway"
	"github.com/tinytelemetry/dealboard/internal/source"
	"github.com/tinytelemetry/dealboard/internal/tui"
)

func buildSource(cfg appConfig) (source.Source, error) {
	if cfg.SlideshowFile != "" {
		return source.NewFileSource(cfg.SlideshowFile), nil
	}
	client, err := source.NewClient(source.ClientConfig{
		BaseURL: cfg.BackendURL,
		Token:   cfg.BackendToken,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

// buildTransports returns the configured push transports in failover order.
func buildTransports(cfg appConfig) ([]gateway.Transport, error) {
	var out []gateway.Transport
	if cfg.PushWebSocketURL != "" {
		out = append(out, gateway.NewWebSocket(cfg.PushWebSocketURL, cfg.PushToken))
	}
	if cfg.PushRedisURL != "" {
		client, err := gateway.ConnectRedis(cfg.PushRedisURL)
		if err != nil {
			return nil, err
		}
		out = append(out, gateway.NewRedis(client, cfg.PushRedisChannel))
	}
	if cfg.PushPollURL != "" {
		out = append(out, gateway.NewPolling(cfg.PushPollURL, cfg.PushToken, cfg.PushPollWait))
	}
	return out, nil
}

func buildPlayer(cfg appConfig) audio.Player {
	if !cfg.AudioEnabled {
		return audio.NopPlayer{}
	}
	p, err := audio.NewExecPlayer(cfg.AudioCommand)
	if err != nil {
		slog.Warn("audio: playback disabled", "error", err)
		return audio.NopPlayer{}
	}
	return p
}

// runTUI shows the access prompt when a code is configured, then the
// display page. It returns when the user quits or ctx ends.
func runTUI(ctx context.Context, disp *display.Display, gw *gateway.Gateway, clock clockwork.Clock) error {
	keys := tui.DefaultKeyMap()
	page := tui.NewDisplayPage(disp, tui.DisplayOptions{
		Push:  gw.Status,
		Clock: clock,
		Keys:  keys,
	})
	defer page.Close()

	var pages []tui.Page
	gated := disp.AccessRequired()
	if gated {
		pages = append(pages, tui.NewAccessPage(ctx, disp, keys))
	}
	pages = append(pages, page)

	p := tea.NewProgram(tui.NewApp(pages...), tea.WithAltScreen(), tea.WithContext(ctx))
	stopBridge := tui.Bridge(p, disp)
	defer stopBridge()

	if !gated {
		if err := disp.Mount(ctx); err != nil {
			return err
		}
	}

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}

// configureRuntimeLogger routes slog to the state-dir log file so the
// terminal UI stays clean. Headless runs also log to stderr.
func configureRuntimeLogger(level string, headless bool) func() {
	lvl, _ := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}
	useStderr := func() func() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return func() {}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return useStderr()
	}

	logDir := filepath.Join(home, ".local", "state", "dealboard")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return useStderr()
	}

	logPath := filepath.Join(logDir, "dealboard.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return useStderr()
	}

	var w io.Writer = f
	if headless {
		w = io.MultiWriter(f, os.Stderr)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	row := func(on bool, label, value string) string {
		mark, render := dot, dim.Render
		if on {
			mark, render = check, cyan.Render
		}
		return fmt.Sprintf("    %s  %-14s %s", mark, label, render(value))
	}

	var lines []string
	lines = append(lines, "")
	lines = append(lines, cyan.Bold(true).Render("    DEALBOARD"))
	lines = append(lines, "    "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Display"), "")
	lines = append(lines, row(true, "Slideshow", cfg.SlideshowID))
	if cfg.SlideshowFile != "" {
		lines = append(lines, row(true, "Source", shortenPath(cfg.SlideshowFile)))
	} else {
		lines = append(lines, row(true, "Source", cfg.BackendURL))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Push"), "")
	lines = append(lines, row(cfg.PushWebSocketURL != "", "WebSocket", orDisabled(cfg.PushWebSocketURL)))
	lines = append(lines, row(cfg.PushRedisURL != "", "Redis", orDisabled(cfg.PushRedisURL)))
	lines = append(lines, row(cfg.PushPollURL != "", "Long-poll", orDisabled(cfg.PushPollURL)))
	if cfg.APIEnabled {
		lines = append(lines, row(true, "HTTP API", cfg.APIAddr))
	} else {
		lines = append(lines, row(false, "HTTP API", "disabled"))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	lines = append(lines, row(cfg.SnapshotPath != "", "Snapshots", orDisabled(shortenPath(cfg.SnapshotPath))))
	lines = append(lines, row(cfg.BackupDir != "", "Backups", orDisabled(shortenPath(cfg.BackupDir))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", shortenPath(cfg.ConfigPath)))
	} else {
		lines = append(lines, row(false, "Config File", "default (no file)"))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func orDisabled(s string) string {
	if s == "" {
		return "disabled"
	}
	return s
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
