package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/access"
	"github.com/tinytelemetry/dealboard/internal/audio"
	"github.com/tinytelemetry/dealboard/internal/display"
	"github.com/tinytelemetry/dealboard/internal/fetcher"
	"github.com/tinytelemetry/dealboard/internal/gateway"
	"github.com/tinytelemetry/dealboard/internal/httpserver"
	"github.com/tinytelemetry/dealboard/internal/notify"
	"github.com/tinytelemetry/dealboard/internal/refresh"
	"github.com/tinytelemetry/dealboard/internal/slidestore"
	"github.com/tinytelemetry/dealboard/internal/snapshot"
	"golang.org/x/sync/errgroup"
)

// run wires every component and blocks until a signal arrives or the
// terminal UI quits.
func run(cfg appConfig, headless bool) error {
	cleanupLogger := configureRuntimeLogger(cfg.LogLevel, headless)
	defer cleanupLogger()

	clock := clockwork.NewRealClock()

	src, err := buildSource(cfg)
	if err != nil {
		return err
	}

	// Snapshot store is optional; without it the cache lives in memory only.
	var store *snapshot.Store
	if cfg.SnapshotPath != "" {
		store, err = snapshot.NewStore(cfg.SnapshotPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer store.Close()

		if rc := snapshot.NewRetentionCleaner(store, clock, cfg.DealRetention); rc != nil {
			defer rc.Stop()
		}
		backuper, err := snapshot.NewBackuper(store, clock, snapshot.BackupConfig{
			Dir:      cfg.BackupDir,
			Interval: cfg.BackupInterval,
			KeepLast: cfg.BackupKeepLast,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize backups: %w", err)
		}
		if backuper != nil {
			defer backuper.Stop()
		}
	}

	transports, err := buildTransports(cfg)
	if err != nil {
		return err
	}
	gw := gateway.New(clock, gateway.Config{
		ReconnectDelay: cfg.ReconnectDelay,
		MaxAttempts:    cfg.ReconnectAttempts,
		SentinelNames:  cfg.SentinelNames,
	}, transports...)

	gate, err := access.NewGate(cfg.AccessCodeHash)
	if err != nil {
		return fmt.Errorf("invalid access-code-hash: %w", err)
	}

	opts := display.Options{
		SlideshowID:  cfg.SlideshowID,
		Source:       src,
		Deals:        gw,
		Clock:        clock,
		Fetch:        fetcher.Policy{Delay: cfg.FetchDelay, Backoff: cfg.RateLimitBackoff},
		Refresh:      refresh.Config{Interval: cfg.RefreshInterval, Settle: cfg.SettleDelay},
		ProgressTick: cfg.ProgressTick,
		Notify: notify.Options{
			Lifetime:      cfg.NotificationLifetime,
			FrameInterval: cfg.AnimationFrame,
			Player:        buildPlayer(cfg),
			Sounds:        audio.Sounds{Default: cfg.SoundDefault, Milestone: cfg.SoundMilestone},
		},
	}
	// Headless hosts have nobody to type a code.
	if !headless {
		opts.Gate = gate
	} else if gate.Required() {
		slog.Warn("dealboard: access code is ignored in headless mode")
	}
	// A nil *snapshot.Store must not reach the interface fields.
	if store != nil {
		opts.Cache = slidestore.NewCache(clock, store)
		opts.DealLog = store
	}
	disp, err := display.New(opts)
	if err != nil {
		return err
	}
	defer disp.Unmount()

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, cfg.WebhookToken, disp, gw)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := gw.Run(gctx)
		if errors.Is(err, gateway.ErrGaveUp) {
			// The display keeps running on heartbeat refreshes alone.
			slog.Error("gateway: push disabled", "error", err)
			return nil
		}
		return err
	})

	if headless {
		printStartupBanner(cfg)
		g.Go(func() error {
			if err := disp.Mount(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			return nil
		})
	} else {
		g.Go(func() error {
			defer stop()
			return runTUI(gctx, disp, gw, clock)
		})
	}

	err = g.Wait()
	disp.Unmount()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
