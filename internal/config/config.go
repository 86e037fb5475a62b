/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel string `validate:"oneof=debug info warn error"`

	IssuesURL   string        `validate:"required,url"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	SplitRatio float64 `validate:"gt=0,lt=1"`
	Seed       uint64
	Estimators int `validate:"min=1"`
	MaxDepth   int `validate:"min=0"`
	// MinSamplesSplit is the smallest node a tree will still split.
	MinSamplesSplit int `validate:"min=2"`

	OutputDir       string `validate:"required"`
	ProcessedFile   string `validate:"required"`
	PredictionsFile string `validate:"required"`

	DBDSN     string
	HistoryDB string

	TelegramToken   string
	TelegramChatIDs []int64
}

// ProcessedPath is where the encoded feature matrix dump goes.
func (c Config) ProcessedPath() string { return filepath.Join(c.OutputDir, c.ProcessedFile) }

// PredictionsPath is where predictions.json goes.
func (c Config) PredictionsPath() string { return filepath.Join(c.OutputDir, c.PredictionsFile) }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loader collects every malformed variable instead of stopping at the first.
type loader struct{ errs []error }

func (l *loader) atoi(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return n
}

func (l *loader) uint64(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return n
}

func (l *loader) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return f
}

func (l *loader) dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("parse %s: %w", key, err))
		return def
	}
	return d
}

func (l *loader) int64s(key string) []int64 {
	csv := os.Getenv(key)
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("parse %s: %w", key, err))
			continue
		}
		out = append(out, n)
	}
	return out
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		AppEnv:   getenv("APP_ENV", "dev"),
		LogLevel: strings.ToLower(getenv("LOG_LEVEL", "info")),

		IssuesURL:   getenv("ISSUES_URL", "http://localhost:5000/jira/issues"),
		HTTPTimeout: l.dur("HTTP_TIMEOUT", 10*time.Second),

		SplitRatio: l.float("SPLIT_RATIO", 0.3),
		Seed:       l.uint64("SEED", 42),
		Estimators: l.atoi("N_ESTIMATORS", 100),
		MaxDepth:   l.atoi("MAX_DEPTH", 0),

		MinSamplesSplit: l.atoi("MIN_SAMPLES_SPLIT", 2),

		OutputDir:       getenv("OUTPUT_DIR", "."),
		ProcessedFile:   getenv("PROCESSED_FILE", "jira_processed.csv"),
		PredictionsFile: getenv("PREDICTIONS_FILE", "predictions.json"),

		DBDSN:     getenv("DB_DSN", ""),
		HistoryDB: getenv("HISTORY_DB", ""),

		TelegramToken:   getenv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatIDs: l.int64s("TELEGRAM_CHAT_IDS"),
	}
	if len(l.errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(l.errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags and reports the first failing field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on '%s' validation", domain.ErrInvalidConfig, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}
