// Package auditlog is the relational transaction ledger: one row per
// `transaction` action, recording items attempted, commit/abort outcome,
// and duration — independent of the Mongo version-history collection, so
// operators retain an audit trail for the highest-risk action even if
// Mongo itself is unavailable. Grounded on the teacher's
// internal/store/postgres.go (pgxpool.New, Ping, ensureSchema idiom).
package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oriys/mongosvc/internal/config"
)

// Ledger is the Postgres-backed transaction audit trail. Disabled
// (nil pool) unless config.AuditLog.Enabled is set.
type Ledger struct {
	pool    *pgxpool.Pool
	enabled bool
}

// New connects to Postgres and ensures the ledger schema exists. When
// cfg.Enabled is false it returns a disabled, safe-to-call-on Ledger.
func New(ctx context.Context, cfg config.AuditLogConfig) (*Ledger, error) {
	if !cfg.Enabled {
		return &Ledger{}, nil
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("auditlog: postgres DSN is required when enabled")
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	l := &Ledger{pool: pool, enabled: true}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := l.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transaction_log (
			id TEXT PRIMARY KEY,
			database TEXT NOT NULL,
			collection TEXT NOT NULL,
			application TEXT,
			correlation_id TEXT,
			item_count INTEGER NOT NULL,
			committed BOOLEAN NOT NULL,
			error_message TEXT,
			items JSONB,
			duration_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_log_created_at ON transaction_log(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_log_db_coll ON transaction_log(database, collection)`,
	}
	for _, stmt := range stmts {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure auditlog schema: %w", err)
		}
	}
	return nil
}

// Entry is one recorded transaction attempt.
type Entry struct {
	ID            string
	Database      string
	Collection    string
	Application   string
	CorrelationID string
	ItemCount     int
	Committed     bool
	ErrorMessage  string
	Items         any // per-item outcomes, stored as JSONB
	Duration      time.Duration
}

// Record writes one audit-log row. A failure to record is logged by the
// caller (the storage orchestrator), never allowed to fail the
// transaction response itself.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if !l.enabled {
		return nil
	}
	itemsJSON, err := json.Marshal(e.Items)
	if err != nil {
		itemsJSON = []byte("null")
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO transaction_log
		 (id, database, collection, application, correlation_id, item_count, committed, error_message, items, duration_ms)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.Database, e.Collection, e.Application, e.CorrelationID,
		e.ItemCount, e.Committed, e.ErrorMessage, itemsJSON, e.Duration.Milliseconds(),
	)
	return err
}

// Close releases the underlying connection pool.
func (l *Ledger) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}
