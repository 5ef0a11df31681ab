package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sajowo/price-watch/internal/config"
	"github.com/sajowo/price-watch/internal/fetch"
	"github.com/sajowo/price-watch/internal/notify"
	"github.com/sajowo/price-watch/internal/refresh"
	"github.com/sajowo/price-watch/internal/scrape"
	"github.com/sajowo/price-watch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	pipeline := scrape.New(fetch.New(http.DefaultClient), fetch.NewBrowser(log), log)
	notifier := notify.New(http.DefaultClient, cfg.NtfyTopic, log)
	refresher := refresh.New(store, pipeline, notifier, log, refresh.Config{
		Workers:      cfg.RefreshWorkers,
		EntryTimeout: cfg.EntryTimeout,
		Interval:     cfg.RefreshInterval,
		MinDelta:     cfg.MinDelta,
		MinDeltaPct:  cfg.MinDeltaPct,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting price watcher", "db", cfg.DatabasePath, "interval", cfg.RefreshInterval)

	refresher.Run(ctx)

	log.Info("price watcher stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
