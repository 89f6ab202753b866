package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinoosan/ftsd/internal/journal"
	"github.com/tinoosan/ftsd/internal/metrics"
	"github.com/tinoosan/ftsd/internal/notify"
	"github.com/tinoosan/ftsd/internal/registry"
	"github.com/tinoosan/ftsd/internal/report"
	"github.com/tinoosan/ftsd/internal/router"
	"github.com/tinoosan/ftsd/internal/service"
	"github.com/tinoosan/ftsd/internal/settings"
	"github.com/tinoosan/ftsd/internal/transfer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ftsd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := settings.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	metrics.Register()

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("download dir: %w", err)
	}

	var sink journal.Sink
	if cfg.JournalDSN != "" {
		sink, err = journal.NewPostgresSink(cfg.JournalDSN)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		logger.Info("journaling to postgres")
	} else {
		sink = journal.NewFileSink(cfg.JournalPath, cfg.JournalMaxSizeMB, cfg.JournalMaxBackups)
		logger.Info("journaling to file", "path", cfg.JournalPath)
	}
	defer func() {
		_ = sink.Close()
	}()

	events := make(chan transfer.Event, 64)
	hub := notify.New(logger, sink, events)
	hub.Run()
	defer hub.Stop()

	reg := registry.New()

	var control report.ControlSender
	if cfg.SignalingURL != "" {
		control, err = report.NewHTTPControlSender(cfg.SignalingURL, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
		if err != nil {
			return err
		}
	} else {
		control = report.NewNopControlSender(logger)
	}
	dispatcher := report.NewDispatcher(logger, reg, control)

	sessionSvc := service.NewSession(logger, reg, dispatcher,
		transfer.NewChanReporter(events),
		&http.Client{}, // no timeout: transfers may run long, cancellation is cooperative
		service.Options{
			DownloadDir:          cfg.DownloadDir,
			ChunkBytes:           cfg.ChunkBytes,
			CollisionPolicy:      transfer.ParseCollisionPolicy(cfg.CollisionPolicy),
			SendDisplayedReports: cfg.SendDisplayedReports,
		})

	server := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     router.New(logger, sessionSvc, hub),
		IdleTimeout: 120 * time.Second,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting ftsd API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received terminate, graceful shutdown", "signal", sig.String())

	// Abort in-flight transfers so offsets are preserved for a later restart.
	for _, sn := range reg.List() {
		if s, ok := reg.ByID(sn.ID); ok {
			_ = s.Interrupt()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
