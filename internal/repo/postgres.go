package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedShams/agile-delay/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

// Open connects and pings with a 10s budget.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &DB{Pool: pool, log: log}, nil
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

const schema = `
CREATE TABLE IF NOT EXISTS prediction_runs (
    id           uuid PRIMARY KEY,
    generated_at timestamptz NOT NULL,
    accuracy     double precision NOT NULL,
    issue_count  integer NOT NULL
);
CREATE TABLE IF NOT EXISTS predictions (
    run_id            uuid NOT NULL REFERENCES prediction_runs(id) ON DELETE CASCADE,
    position          integer NOT NULL,
    issue_id          text NOT NULL,
    issue_key         text NOT NULL,
    summary           text NOT NULL,
    assignee          text NOT NULL,
    status            text NOT NULL,
    priority          text NOT NULL,
    issuetype         text NOT NULL,
    created_at        timestamptz,
    age_days          integer NOT NULL,
    status_score      smallint NOT NULL,
    delayed           smallint NOT NULL,
    predicted_delayed smallint,
    PRIMARY KEY (run_id, position)
);`

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const (
	insertRun = `INSERT INTO prediction_runs(id, generated_at, accuracy, issue_count)
        VALUES($1,$2,$3,$4)`
	insertPrediction = `INSERT INTO predictions(run_id, position, issue_id, issue_key, summary,
            assignee, status, priority, issuetype, created_at, age_days, status_score,
            delayed, predicted_delayed)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
)

// parseTS returns nil for timestamps that do not parse so the column stays NULL.
func parseTS(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// predictionBatch queues one insert per exported row.
func predictionBatch(runID uuid.UUID, out domain.PredictionOutput) *pgx.Batch {
	batch := &pgx.Batch{}
	for i, p := range out.Predictions {
		batch.Queue(insertPrediction, runID, i, p.ID, p.Key, p.Summary,
			p.Assignee, p.Status, p.Priority, p.IssueType, parseTS(p.Created), p.AgeDays, p.StatusScore,
			p.Delayed, p.PredictedDelayed)
	}
	return batch
}

// SaveRun stores a run and all its rows in one transaction.
func (r *Repository) SaveRun(ctx context.Context, runID uuid.UUID, out domain.PredictionOutput) error {
	generatedAt := time.Now().UTC()
	if t := parseTS(out.GeneratedAt); t != nil {
		generatedAt = *t
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertRun, runID, generatedAt, out.Accuracy, len(out.Predictions)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	batch := predictionBatch(runID, out)
	br := tx.SendBatch(ctx, batch)
	for range out.Predictions {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert prediction: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Str("run_id", runID.String()).Int("rows", len(out.Predictions)).Msg("run stored")
	return nil
}

// CountPredictions returns the number of stored rows for a run.
func (r *Repository) CountPredictions(ctx context.Context, runID uuid.UUID) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, "SELECT count(*) FROM predictions WHERE run_id=$1", runID).Scan(&n)
	return n, err
}
