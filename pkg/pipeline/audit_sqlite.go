// Copyright 2026 © The Dirigent Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteAuditStore persists run records in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// OpenSQLiteAuditStore opens (or creates) the audit database at path.
func OpenSQLiteAuditStore(path string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteAuditStore(db)
}

// NewSQLiteAuditStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureRunAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

// Record stores a single run record.
func (s *SQLiteAuditStore) Record(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			run_id, agent_id, conversation_id, task, status, response, error_text, degraded, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		rec.AgentID,
		rec.ConversationID,
		rec.Task,
		rec.Status,
		rec.Response,
		rec.Error,
		rec.Degraded,
		normalizeAuditTime(rec.StartedAt),
		normalizeAuditTime(rec.FinishedAt),
	)
	return err
}

// List returns run records matching the filter.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]RunRecord, error) {
	query := `
		SELECT run_id, agent_id, conversation_id, task, status, response, error_text, degraded, started_at, finished_at
		FROM pipeline_runs
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.AgentID != "" {
		addFilter("agent_id = ?", filter.AgentID)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY started_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&rec.RunID,
			&rec.AgentID,
			&rec.ConversationID,
			&rec.Task,
			&rec.Status,
			&rec.Response,
			&rec.Error,
			&rec.Degraded,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			rec.StartedAt = started.Time
		}
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func ensureRunAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			conversation_id TEXT,
			task TEXT,
			status TEXT NOT NULL,
			response TEXT,
			error_text TEXT,
			degraded BOOLEAN NOT NULL DEFAULT 0,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_pipeline_runs_agent ON pipeline_runs(agent_id);
		CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);
	`)
	return err
}
