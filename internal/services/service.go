/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HamedShams/agile-delay/internal/config"
	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/HamedShams/agile-delay/internal/export"
	"github.com/HamedShams/agile-delay/internal/features"
	"github.com/HamedShams/agile-delay/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Source interface {
	Fetch(ctx context.Context) ([]domain.RawIssue, error)
}

type Store interface {
	SaveRun(ctx context.Context, runID uuid.UUID, out domain.PredictionOutput) error
}

// Stores fans a run out to every configured store and joins their failures.
type Stores []Store

func (ss Stores) SaveRun(ctx context.Context, runID uuid.UUID, out domain.PredictionOutput) error {
	var errs []error
	for _, s := range ss {
		if err := s.SaveRun(ctx, runID, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, text string) error
}

type Service struct {
	cfg    config.Config
	log    zerolog.Logger
	source Source
	store  Store
	notify Notifier
	now    func() time.Time
}

// New wires the pipeline; store and notifier may be nil.
func New(cfg config.Config, log zerolog.Logger, source Source, store Store, notify Notifier) *Service {
	return &Service{cfg: cfg, log: log, source: source, store: store, notify: notify, now: time.Now}
}

// WithClock fixes the reference time used for ages and generated_at.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type Summary struct {
	RunID           uuid.UUID
	Issues          int
	Delayed         int
	Accuracy        float64
	ProcessedPath   string
	PredictionsPath string
}

func (s Summary) String() string {
	return fmt.Sprintf("delay model: accuracy=%.3f issues=%d delayed=%d", s.Accuracy, s.Issues, s.Delayed)
}

// Run executes one fetch → features → train → export cycle. Nothing is
// written unless every stage before the writers succeeded.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New()
	log := s.log.With().Str("run_id", runID.String()).Logger()
	now := s.now().UTC()

	raw, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch issues: %w", err)
	}
	log.Info().Int("issues", len(raw)).Msg("issues fetched")

	recs := features.Extract(raw, now)
	encoded, codebook := features.Encode(recs)
	labeled := features.DeriveLabels(encoded)
	log.Info().Int("rows", len(labeled)).Msg("data loaded and processed")
	for i, r := range labeled {
		if i >= 5 {
			break
		}
		log.Debug().Str("key", r.Key).Int("assignee", r.AssigneeCode).Int("priority", r.PriorityCode).
			Int("issuetype", r.IssueTypeCode).Int("age_days", r.AgeDays).Int("status_score", r.StatusScore).
			Int("delayed", r.Delayed).Msg("row")
	}

	res, err := model.TrainEvaluate(labeled, model.Options{
		SplitRatio: s.cfg.SplitRatio,
		Seed:       s.cfg.Seed,
		Estimators: s.cfg.Estimators,
		MaxDepth:   s.cfg.MaxDepth,

		MinSamplesSplit: s.cfg.MinSamplesSplit,
	})
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	log.Info().Float64("accuracy", res.Accuracy).Int("train", len(res.TrainIndices)).Int("test", len(res.TestIndices)).Msg("model trained")

	out, err := export.BuildOutput(labeled, codebook, res, now)
	if err != nil {
		return nil, fmt.Errorf("build output: %w", err)
	}

	sum := &Summary{
		RunID:           runID,
		Issues:          len(out.Predictions),
		Delayed:         out.DelayedCount(),
		Accuracy:        out.Accuracy,
		ProcessedPath:   s.cfg.ProcessedPath(),
		PredictionsPath: s.cfg.PredictionsPath(),
	}

	if err := export.WriteResults(sum.ProcessedPath, labeled, sum.PredictionsPath, out); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}
	log.Info().Str("path", sum.ProcessedPath).Str("predictions", sum.PredictionsPath).Msg("results written")

	if s.store != nil {
		if err := s.store.SaveRun(ctx, runID, out); err != nil {
			return sum, fmt.Errorf("store run: %w", err)
		}
		log.Info().Msg("run stored")
	}

	if s.notify != nil && s.notify.Enabled() {
		if err := s.notify.Notify(ctx, sum.String()); err != nil {
			log.Warn().Err(err).Msg("run summary not delivered")
		}
	}
	return sum, nil
}
