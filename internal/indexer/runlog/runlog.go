// Package runlog records finished indexing runs in the PostgreSQL
// index_runs table. A Ledger built from a nil *sql.DB records nothing, so
// the indexer runs the same with or without a database.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
)

const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS index_runs (
	run_id          TEXT PRIMARY KEY,
	index_name      TEXT NOT NULL,
	collection_root TEXT NOT NULL,
	output_dir      TEXT NOT NULL,
	codec           TEXT NOT NULL,
	status          TEXT NOT NULL,
	blocks          INTEGER NOT NULL,
	documents       INTEGER NOT NULL,
	terms           INTEGER NOT NULL,
	postings_bytes  BIGINT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	duration_ms     BIGINT NOT NULL,
	error           TEXT NOT NULL DEFAULT ''
)`

const insertRunSQL = `INSERT INTO index_runs
	(run_id, index_name, collection_root, output_dir, codec, status,
	 blocks, documents, terms, postings_bytes, started_at, duration_ms, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (run_id) DO UPDATE SET
	status = EXCLUDED.status,
	blocks = EXCLUDED.blocks,
	documents = EXCLUDED.documents,
	terms = EXCLUDED.terms,
	postings_bytes = EXCLUDED.postings_bytes,
	duration_ms = EXCLUDED.duration_ms,
	error = EXCLUDED.error`

// RunRecord is one row of index_runs.
type RunRecord struct {
	RunID          string
	IndexName      string
	CollectionRoot string
	OutputDir      string
	Codec          string
	Status         string
	Blocks         int
	Documents      int
	Terms          int
	PostingsBytes  int64
	StartedAt      time.Time
	Duration       time.Duration
	Error          string
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Ledger struct {
	db     execer
	logger *slog.Logger
}

func New(db *sql.DB) *Ledger {
	l := &Ledger{logger: logger.WithComponent("run-ledger")}
	if db != nil {
		l.db = db
	}
	return l
}

// EnsureSchema creates the index_runs table if it does not exist.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	if _, err := l.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("creating index_runs table: %w", err)
	}
	return nil
}

// Record inserts rec, or updates the row of a run that was recorded before.
func (l *Ledger) Record(ctx context.Context, rec RunRecord) error {
	if l.db == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx, insertRunSQL,
		rec.RunID, rec.IndexName, rec.CollectionRoot, rec.OutputDir, rec.Codec, rec.Status,
		rec.Blocks, rec.Documents, rec.Terms, rec.PostingsBytes,
		rec.StartedAt.UTC(), rec.Duration.Milliseconds(), rec.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", rec.RunID, err)
	}
	l.logger.Debug("run recorded",
		"run_id", rec.RunID,
		"status", rec.Status,
	)
	return nil
}
