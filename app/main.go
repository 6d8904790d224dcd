package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medtrack/regwatch/app/api"
	"github.com/medtrack/regwatch/app/cfg"
	"github.com/medtrack/regwatch/app/database"
	"github.com/medtrack/regwatch/app/feed"
	"github.com/medtrack/regwatch/app/scheduler"
	"github.com/medtrack/regwatch/app/sources"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting RegWatch server", "version", appCfg.Version)

	// Database connection and schema
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer db.Close()

	migrationVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", migrationVersion, "dirty", dirty)

	// Load source definitions
	registry := sources.NewRegistry(appCfg.SourcesDir, appCfg.FetchTimeout)
	if err := registry.Run(); err != nil {
		log.Fatal("Failed to load source definitions: ", err)
	}
	slog.Info("Source definitions loaded", "count", registry.GetSourceCount(), "dir", appCfg.SourcesDir)

	// Register sources in the database
	sourceRepo := database.NewSourceRepository(db)
	registeredCount := 0
	for _, source := range registry.GetSources() {
		if _, err := sourceRepo.UpsertSource(source.Name, source.URL, source.Authority,
			source.Region, source.UpdateType, source.Active); err != nil {
			slog.Warn("Failed to register source", "source", source.Name, "error", err)
			continue
		}
		registeredCount++
	}
	slog.Info("Sources registered", "registered", registeredCount, "total", registry.GetSourceCount())

	// Core pipeline components
	updateRepo := database.NewUpdateRepository(db)
	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, appCfg.UserAgent)
	processor := feed.NewProcessor(fetcher, feed.NewParser(), feed.NewNormalizer(),
		feed.NewExtractor(), sourceRepo, updateRepo)

	// Background scheduler
	feedScheduler := scheduler.NewScheduler(registry, sourceRepo, processor,
		time.Duration(appCfg.SchedulerInterval)*time.Minute,
		time.Duration(appCfg.PolitenessDelay)*time.Second)
	feedScheduler.Start()
	defer feedScheduler.Stop()

	// HTTP server
	apiHandler := api.NewHandler(registry, sourceRepo, updateRepo, processor, feedScheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
