// Package main is the entry point for the Warden decision engine. It wires
// the feed providers, risk monitors, agents and orchestrator, then runs the
// decision loop on an adaptive schedule behind an HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kyrou/warden/internal/agents"
	"github.com/kyrou/warden/internal/config"
	"github.com/kyrou/warden/internal/database"
	"github.com/kyrou/warden/internal/feed"
	"github.com/kyrou/warden/internal/friction"
	"github.com/kyrou/warden/internal/history"
	"github.com/kyrou/warden/internal/optimizer"
	"github.com/kyrou/warden/internal/orchestrator"
	"github.com/kyrou/warden/internal/risk"
	"github.com/kyrou/warden/internal/risk/exposure"
	"github.com/kyrou/warden/internal/scheduler"
	"github.com/kyrou/warden/internal/server"
	"github.com/kyrou/warden/internal/tracker"
	"github.com/kyrou/warden/pkg/logger"
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

	log.Info().Msg("Starting Warden")

	// Decision trail database
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "decisions.db"),
		Profile: database.ProfileLedger,
		Name:    "decisions",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open decisions database")
	}
	defer func() { _ = db.Close() }()

	repo, err := history.NewRepository(db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize decision history")
	}

	// Tracker state survives restarts so trailing stops keep their peaks
	store := tracker.NewStore(log)
	trackerPath := filepath.Join(cfg.DataDir, "tracker.msgpack")
	if err := store.Load(trackerPath); err != nil {
		log.Warn().Err(err).Msg("Failed to restore tracker snapshot, starting fresh")
	}

	frictionCalc := friction.NewCalculator(log)
	opt := optimizer.New(cfg.Optimizer, frictionCalc, log)
	gate := exposure.NewGate(cfg.Exposure, log)
	riskManager := risk.NewManager(store, log)

	orch := orchestrator.New(
		riskManager,
		agents.NewMarketAnalyst(log),
		agents.NewRiskAgent(log),
		agents.NewStrategyAgent(opt, log),
		agents.NewExecutionAgent(gate, log),
		log,
	)

	feeds := feed.NewFileProvider(cfg.FeedDir, log)

	runCycle := func(ctx context.Context) (*orchestrator.ConsensusResult, error) {
		market, err := feeds.Market()
		if err != nil {
			return nil, fmt.Errorf("market feed unavailable: %w", err)
		}
		portfolio, err := feeds.Portfolio()
		if err != nil {
			return nil, fmt.Errorf("portfolio feed unavailable: %w", err)
		}
		advisory, err := feeds.Advisory()
		if err != nil {
			log.Warn().Err(err).Msg("Advisory unreadable, deciding without it")
			advisory = nil
		}

		result, err := orch.RunCycle(ctx, market, portfolio, advisory)
		if err != nil {
			return nil, err
		}

		if err := repo.Save(ctx, result); err != nil {
			log.Error().Err(err).Msg("Failed to persist decision")
		}
		if err := store.Save(trackerPath); err != nil {
			log.Error().Err(err).Msg("Failed to persist tracker snapshot")
		}
		return result, nil
	}

	sched := scheduler.New(cfg.Scheduler, runCycle, log)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	srv := server.New(server.Config{
		Log:          log,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		History:      repo,
		TriggerCycle: sched.TriggerNow,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	sched.Stop()

	if err := store.Save(trackerPath); err != nil {
		log.Error().Err(err).Msg("Failed to save tracker snapshot on shutdown")
	}

	log.Info().Msg("Shutdown complete")
}
