package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tonicoded/ytvideoshorts/internal/logger"
	"github.com/tonicoded/ytvideoshorts/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	var (
		flagAddr      string
		flagLogLevel  string
		flagLogFormat string
		flagLogFile   string
	)
	flag.StringVar(&flagAddr, "addr", envOr("ADDR", ":3000"), "listen address")
	flag.StringVar(&flagLogLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flag.StringVar(&flagLogFormat, "log-format", envOr("LOG_FORMAT", "text"), "log format (text, json)")
	flag.StringVar(&flagLogFile, "log-file", envOr("LOG_FILE", ""), "log file path (empty logs to stdout only)")
	flag.Parse()

	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(flagLogLevel)
	cfg.Format = logger.ParseFormat(flagLogFormat)
	if flagLogFile != "" {
		cfg.Output = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   flagLogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		})
	}
	logger.SetGlobalLogger(logger.New(cfg))
	appLog := logger.WithComponent(logger.ComponentApp)

	srv := &http.Server{
		Addr:    flagAddr,
		Handler: server.New().Router(),
		// No write timeout: media relays run for as long as the stream does.
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("listening", map[string]any{"addr": flagAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("server failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	appLog.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("shutdown incomplete", map[string]any{"error": err.Error()})
	}
	appLog.Info("shutdown complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
