/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/HamedShams/agile-delay/internal/adapters/jira"
	"github.com/HamedShams/agile-delay/internal/adapters/telegram"
	"github.com/HamedShams/agile-delay/internal/config"
	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/HamedShams/agile-delay/internal/logger"
	"github.com/HamedShams/agile-delay/internal/repo"
	"github.com/HamedShams/agile-delay/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(config.Config{AppEnv: "dev", LogLevel: "info"})
		boot.Error().Err(err).Str("kind", domain.Kind(err)).Msg("invalid configuration")
		return 1
	}
	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Adapters
	jc := jira.NewClient(cfg, log)
	tg := telegram.NewClient(cfg, log)

	// Optional run stores
	var stores services.Stores
	if cfg.DBDSN != "" {
		db, err := repo.Open(ctx, cfg.DBDSN, log)
		if err != nil {
			log.Error().Err(err).Msg("database unavailable")
			return 1
		}
		defer db.Close()
		repository := repo.NewRepository(db, log)
		if err := repository.EnsureSchema(ctx); err != nil {
			log.Error().Err(err).Msg("schema setup failed")
			return 1
		}
		stores = append(stores, repository)
	}
	var history *repo.History
	if cfg.HistoryDB != "" {
		history, err = repo.OpenHistory(ctx, cfg.HistoryDB, log)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.HistoryDB).Msg("history unavailable")
			return 1
		}
		defer history.Close()
		stores = append(stores, history)
	}
	var store services.Store
	if len(stores) > 0 {
		store = stores
	}

	var previous *repo.RunSummary
	if history != nil {
		if runs, err := history.RecentRuns(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("previous run lookup failed")
		} else if len(runs) == 1 {
			previous = &runs[0]
		}
	}

	svc := services.New(cfg, log, jc, store, tg)
	sum, err := svc.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("kind", domain.Kind(err)).Msg("run failed")
		return 1
	}
	log.Info().
		Str("run_id", sum.RunID.String()).
		Float64("accuracy", sum.Accuracy).
		Int("issues", sum.Issues).
		Int("delayed", sum.Delayed).
		Str("predictions", sum.PredictionsPath).
		Msg("predictions saved")
	if previous != nil {
		log.Info().
			Str("previous_run", previous.ID).
			Float64("previous_accuracy", previous.Accuracy).
			Float64("accuracy_delta", sum.Accuracy-previous.Accuracy).
			Msg("compared with previous run")
	}
	return 0
}
