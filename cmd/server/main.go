// Package main is the entry point for the FactorLab factor evaluation
// service. It loads configuration, opens the reports database, wires the
// evaluation run service, and serves the HTTP API with optional
// scheduled re-evaluation.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/factorlab/internal/config"
	"github.com/aristath/factorlab/internal/database"
	"github.com/aristath/factorlab/internal/events"
	"github.com/aristath/factorlab/internal/marketdata"
	"github.com/aristath/factorlab/internal/modules/reports"
	"github.com/aristath/factorlab/internal/scheduler"
	"github.com/aristath/factorlab/internal/server"
	"github.com/aristath/factorlab/internal/services"
	"github.com/aristath/factorlab/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("strategy", cfg.Strategy).
		Str("data_dir", cfg.DataDir).
		Msg("Starting FactorLab")

	reportsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "reports.db"),
		Profile: database.ProfileStandard,
		Name:    "reports",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open reports database")
	}
	defer reportsDB.Close()

	repo := reports.NewRepository(reportsDB.Conn(), log)
	if err := repo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate reports schema")
	}

	bus := events.NewBus()
	provider := marketdata.CSVProvider{Path: cfg.BarsPath}
	runService := services.NewRunService(cfg, provider, repo, bus, log)

	sched := scheduler.New(log)
	if cfg.EvaluateSchedule != "" {
		job := scheduler.NewEvaluateJob(runService, log)
		if err := sched.AddJob(cfg.EvaluateSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.EvaluateSchedule).Msg("Failed to register evaluation job")
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:        log,
		ReportsDB:  reportsDB,
		Repo:       repo,
		RunService: runService,
		Bus:        bus,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	if err := reportsDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint on shutdown failed")
	}
	log.Info().Msg("FactorLab stopped")
}
