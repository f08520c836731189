package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/sebas/incallcore/internal/incall/app"
	"github.com/sebas/incallcore/internal/incall/carrier"
	"github.com/sebas/incallcore/internal/incall/config"
	"github.com/sebas/incallcore/internal/incall/events"
	"github.com/sebas/incallcore/internal/incall/looper"
	"github.com/sebas/incallcore/internal/incall/metrics"
	"github.com/sebas/incallcore/internal/incall/prefs"
	"github.com/sebas/incallcore/internal/incall/replay"
	"github.com/sebas/incallcore/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(2)
	}
	os.Exit(execute(cfg, os.Stderr))
}

// execute sets up logging, runs the replay and returns the process exit code.
// The log file is closed before returning.
func execute(cfg *config.Config, stderr io.Writer) int {
	logger.SetLevel(cfg.LogLevel)
	outputs := []io.Writer{stderr}
	if cfg.LogFile != "" {
		file := logger.NewRotatingFile(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		defer file.Close()
		outputs = append(outputs, file)
	}
	logger.InitLogger(outputs...)

	if err := run(cfg); err != nil {
		slog.Error("Replay failed", "error", err)
		return 1
	}
	return 0
}

func run(cfg *config.Config) error {
	if cfg.ScenarioPath == "" {
		return errors.New("no scenario given (-scenario or SCENARIO)")
	}
	sc, err := replay.LoadFile(cfg.ScenarioPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openPrefs(ctx, cfg.PrefsPath)
	if err != nil {
		return err
	}
	defer store.Close()

	carrierCfg := carrier.Empty()
	if cfg.CarrierConfigPath != "" {
		if carrierCfg, err = carrier.LoadFile(cfg.CarrierConfigPath); err != nil {
			return err
		}
	}
	settings := carrierCfg.Settings()
	settings.AutoFullscreen = settings.AutoFullscreen || cfg.AutoFullscreen
	if cfg.AutoFullscreenDelay > 0 {
		settings.AutoFullscreenDelay = cfg.AutoFullscreenDelay
	}

	loop := looper.NewLoop(looper.LoopConfig{Logger: slog.Default()})
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Core loop stopped", "error", err)
		}
	}()

	host := replay.NewHost(slog.Default())
	m := metrics.New()
	core, err := app.New(app.Config{
		Host:                  host.Collaborators(),
		Carrier:               carrierCfg,
		Settings:              settings,
		Scheduler:             loop,
		Prefs:                 store,
		Publisher:             events.NewLoggingPublisher(slog.Default()),
		CancelResponseTimeout: cfg.CancelResponseTimeout,
		CapabilityTimeout:     cfg.CapabilityTimeout,
		FetchTimeout:          cfg.FetchTimeout,
		Logger:                slog.Default(),
		Metrics:               m,
	})
	if err != nil {
		return err
	}
	defer core.Close()

	slog.Info("Starting in-call core replay",
		"scenario", cfg.ScenarioPath,
		"steps", len(sc.Steps),
		"carrier", cfg.CarrierConfigPath,
		"phone", cfg.PhoneID,
	)

	runner := &replay.Runner{
		Core:       core,
		Host:       host,
		Dispatcher: loop,
		PhoneID:    cfg.PhoneID,
		Logger:     slog.Default(),
	}
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, sc) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig)
		cancel()
		err = <-done
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case err = <-done:
	}

	logMetrics(m)
	return err
}

func openPrefs(ctx context.Context, path string) (prefs.Store, error) {
	if path == "" {
		return prefs.NewMemory(), nil
	}
	s, err := prefs.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func logMetrics(m *metrics.Metrics) {
	snap, err := m.Snapshot()
	if err != nil {
		slog.Warn("Failed to gather metrics", "error", err)
		return
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		slog.Info("Metric", "name", k, "value", snap[k])
	}
}
