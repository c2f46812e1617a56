// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danielhkuo/ranked-pick/cliparse"
	"github.com/danielhkuo/ranked-pick/db"
	"github.com/danielhkuo/ranked-pick/handlers"
	"github.com/danielhkuo/ranked-pick/ingest"
	"github.com/danielhkuo/ranked-pick/logging"
	"github.com/danielhkuo/ranked-pick/middleware"
	"github.com/danielhkuo/ranked-pick/router"
)

const (
	shutdownTimeout    = 10 * time.Second
	limiterIdleTimeout = 30 * time.Minute
	limiterSweep       = "@every 10m"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := cliparse.LoadEnv(".env"); err != nil {
		return err
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	// Connect and create schema (tables)
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := db.CreateSchema(dbConn); err != nil {
		return err
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	mapping, err := ingest.LoadMapping(cfg.MappingFile)
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.BallotRateLimit, cfg.BallotBurst)

	closer := handlers.NewCloser(dbConn)
	err = closer.Schedule(limiterSweep, func() {
		if n := limiter.CleanupStale(time.Now().Add(-limiterIdleTimeout)); n > 0 {
			slog.Debug("rate limiters pruned", "removed", n, "remaining", limiter.Len())
		}
	})
	if err != nil {
		return err
	}
	if err := closer.Start(cfg.CloseSchedule); err != nil {
		return err
	}
	slog.Info("Close scheduler started", "schedule", cfg.CloseSchedule)

	// Create router
	mux := router.NewRouter(dbConn, cfg, mapping, limiter)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "base_url", cfg.BaseURL)
	err = server.ListenAndServe()

	<-closer.Stop().Done()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Server closed")
	return nil
}
