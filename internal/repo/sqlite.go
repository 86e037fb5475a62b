package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// History keeps run summaries in a local SQLite file so consecutive runs
// can be compared without a database server.
type History struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// RunSummary is one row of prediction_runs.
type RunSummary struct {
	ID          string  `db:"id"`
	GeneratedAt string  `db:"generated_at"`
	Accuracy    float64 `db:"accuracy"`
	Issues      int     `db:"issue_count"`
	Delayed     int     `db:"delayed_count"`
}

// OpenHistory opens (creating if needed) the SQLite file at path.
func OpenHistory(ctx context.Context, path string, log zerolog.Logger) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history dir: %w", err)
		}
	}
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history open: %w", err)
	}
	// single writer; also keeps an in-memory database on one connection
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history pragma: %w", err)
	}
	h := &History{db: db, log: log}
	if err := h.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) Close() error { return h.db.Close() }

const historySchema = `
CREATE TABLE IF NOT EXISTS prediction_runs (
    id            TEXT PRIMARY KEY,
    generated_at  TEXT NOT NULL,
    accuracy      REAL NOT NULL,
    issue_count   INTEGER NOT NULL,
    delayed_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS predictions (
    run_id            TEXT NOT NULL REFERENCES prediction_runs(id) ON DELETE CASCADE,
    position          INTEGER NOT NULL,
    issue_id          TEXT NOT NULL,
    issue_key         TEXT NOT NULL,
    status_score      INTEGER NOT NULL,
    delayed           INTEGER NOT NULL,
    predicted_delayed INTEGER,
    PRIMARY KEY (run_id, position)
);`

func (h *History) ensureSchema(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, historySchema); err != nil {
		return fmt.Errorf("history schema: %w", err)
	}
	return nil
}

// SaveRun records the run and its rows atomically.
func (h *History) SaveRun(ctx context.Context, runID uuid.UUID, out domain.PredictionOutput) error {
	tx, err := h.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO prediction_runs(id, generated_at, accuracy, issue_count, delayed_count) VALUES(?,?,?,?,?)`,
		runID.String(), out.GeneratedAt, out.Accuracy, len(out.Predictions), out.DelayedCount()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO predictions(run_id, position, issue_id, issue_key, status_score, delayed, predicted_delayed)
         VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare prediction: %w", err)
	}
	defer stmt.Close()
	for i, p := range out.Predictions {
		if _, err := stmt.ExecContext(ctx, runID.String(), i, p.ID, p.Key, p.StatusScore, p.Delayed, p.PredictedDelayed); err != nil {
			return fmt.Errorf("insert prediction %s: %w", p.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	h.log.Debug().Str("run_id", runID.String()).Int("rows", len(out.Predictions)).Msg("run recorded in history")
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (h *History) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	var runs []RunSummary
	err := h.db.SelectContext(ctx, &runs,
		`SELECT id, generated_at, accuracy, issue_count, delayed_count
         FROM prediction_runs ORDER BY generated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return runs, nil
}

func (h *History) CountPredictions(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := h.db.GetContext(ctx, &n, `SELECT count(*) FROM predictions WHERE run_id=?`, runID.String())
	return n, err
}
