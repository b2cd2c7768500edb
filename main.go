package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tkvist/courtkeeper/internal/config"
	"github.com/tkvist/courtkeeper/internal/database"
	"github.com/tkvist/courtkeeper/internal/entry"
	server "github.com/tkvist/courtkeeper/internal/http"
	"github.com/tkvist/courtkeeper/internal/match"
	"github.com/tkvist/courtkeeper/internal/metrics"
	"github.com/tkvist/courtkeeper/internal/notifier/slack"
	"github.com/tkvist/courtkeeper/internal/pairing"
	"github.com/tkvist/courtkeeper/internal/pubsub"
	"github.com/tkvist/courtkeeper/internal/rating"
	"github.com/tkvist/courtkeeper/internal/rotation"
)

func main() {
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	db, dbTeardown, err := database.Init(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	entries := entry.New(db)
	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc, cfg.Slack.Token == "")
	pubsubClient := pubsub.New(cfg.ProjectID)

	orchestrator := match.NewOrchestrator(
		entries,
		rotation.New(db),
		pairing.NewAlternator(db, pairing.NewBalanced(), pairing.NewSearch(cfg.Session.SearchTrials)),
		rating.New(cfg.Rating.InitialMu),
		match.NewStore(db),
		notifier,
		pubsubClient,
		metricsSvc,
		cfg.Session.MaxTxRecords,
	)

	s := server.NewServer(entries, orchestrator, metricsSvc, metricsHandler, cfg)

	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}
