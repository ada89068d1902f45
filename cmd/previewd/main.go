// Command previewd serves a preview channel over HTTP. Producers POST wire
// encoded events, consumers attach SSE or websocket streams, and late
// openers fetch aggregated state.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casualjim/preview"
	"github.com/casualjim/preview/internal/config"
	"github.com/casualjim/preview/internal/httpapi"
	"github.com/casualjim/preview/pkg/slogx"
	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

func main() {
	if err := mainE(context.Background()); err != nil {
		slog.Error("previewd failed", slogx.Error(err))
		os.Exit(1)
	}
}

func mainE(ctx context.Context) error {
	configPath := flag.String("config", os.Getenv("PREVIEW_CONFIG"), "path to a yaml, json or toml config file")
	addr := flag.String("addr", "", "HTTP listen address, overrides the config file")
	highWatermark := flag.Int("high-watermark", 0, "soft per-conversation subscriber bound, overrides the config file")
	logLevel := flag.String("log-level", "", "debug, info, warn or error, overrides the config file")
	pretty := flag.Bool("pretty", false, "human readable console logs")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = config.FromEnv(cfg)
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *highWatermark > 0 {
		cfg.HighWatermark = *highWatermark
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *pretty {
		cfg.PrettyLogs = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	channel := preview.New(preview.WithHighWatermark(cfg.HighWatermark))
	server, err := httpapi.New(httpapi.Config{
		Channel:       channel,
		BaseCtx:       ctx,
		MaxEventBytes: cfg.MaxEventBytes,
		StreamBuffer:  cfg.StreamBuffer,
		CORSOrigins:   cfg.CORSOrigins,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("previewd listening", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownGraceSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func setupLogging(cfg config.Config) {
	var zl zerolog.Logger
	if cfg.PrettyLogs {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
		zl = zerolog.New(output).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(zl, &zeroslog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}),
	))
}

func parseLevel(level string) slog.Level {
	switch level {
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
