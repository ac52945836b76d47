// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store provides a Postgres-backed ledger of processed emails: the
// latest status of every email that went through the pipeline.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/ragprep/internal/pipeline"
)

// Record is one row of the ledger.
type Record struct {
	ID           int64
	RunID        string
	SourceID     string
	Subject      string
	Status       string // "processed", "skipped", "failed"
	Reason       string
	Error        string
	Chunks       int
	Documents    int
	QualityScore float64
	Degraded     []string
	DurationMS   int64
	ProcessedAt  time.Time
	UpdatedAt    time.Time
}

// Store records pipeline outcomes in Postgres.
type Store struct {
	pool  *pgxpool.Pool
	runID string
}

// NewStore creates a ledger backed by the given Postgres pool. runID tags
// every row written through this Store. It ensures the table exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool, runID string) (*Store, error) {
	s := &Store{pool: pool, runID: runID}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	slog.Info("processing ledger initialised", "run_id", runID)
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS processed_emails (
			id            BIGSERIAL PRIMARY KEY,
			run_id        TEXT NOT NULL,
			source_id     TEXT NOT NULL UNIQUE,
			subject       TEXT DEFAULT '',
			status        TEXT NOT NULL,
			reason        TEXT DEFAULT '',
			error         TEXT DEFAULT '',
			chunks        INTEGER DEFAULT 0,
			documents     INTEGER DEFAULT 0,
			quality_score DOUBLE PRECISION DEFAULT 0,
			degraded      TEXT[] DEFAULT '{}',
			duration_ms   BIGINT DEFAULT 0,
			processed_at  TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_processed_status ON processed_emails(status);
		CREATE INDEX IF NOT EXISTS idx_processed_run ON processed_emails(run_id);
	`)
	return err
}

// Record upserts the outcome of one email keyed on its source ID.
func (s *Store) Record(ctx context.Context, o pipeline.Outcome) error {
	degraded := o.Degraded
	if degraded == nil {
		degraded = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processed_emails
			(run_id, source_id, subject, status, reason, error, chunks, documents,
			 quality_score, degraded, duration_ms, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_id) DO UPDATE SET
			run_id        = EXCLUDED.run_id,
			subject       = EXCLUDED.subject,
			status        = EXCLUDED.status,
			reason        = EXCLUDED.reason,
			error         = EXCLUDED.error,
			chunks        = EXCLUDED.chunks,
			documents     = EXCLUDED.documents,
			quality_score = EXCLUDED.quality_score,
			degraded      = EXCLUDED.degraded,
			duration_ms   = EXCLUDED.duration_ms,
			processed_at  = EXCLUDED.processed_at,
			updated_at    = NOW()
	`, s.runID, o.SourceID, o.Subject, string(o.Status), o.Reason, o.Error, o.Chunks, o.Documents,
		o.QualityScore, degraded, o.Duration.Milliseconds(), o.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record outcome for %s: %w", o.SourceID, err)
	}
	return nil
}

// Get retrieves the ledger row for one email, or nil if it was never seen.
func (s *Store) Get(ctx context.Context, sourceID string) (*Record, error) {
	row := s.pool.QueryRow(ctx, selectRecord+`WHERE source_id = $1`, sourceID)
	return scanRecord(row)
}

// ListByStatus returns up to limit rows with the given status, newest first.
func (s *Store) ListByStatus(ctx context.Context, status pipeline.Status, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, selectRecord+`
		WHERE status = $1
		ORDER BY processed_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// StatusCounts returns the number of emails per status.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM processed_emails GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Ping checks the Postgres connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const selectRecord = `
	SELECT id, run_id, source_id, subject, status, reason, error, chunks,
	       documents, quality_score, degraded, duration_ms, processed_at, updated_at
	FROM processed_emails
`

// scanRecord scans a single row into a Record.
func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID, &r.RunID, &r.SourceID, &r.Subject, &r.Status, &r.Reason, &r.Error, &r.Chunks,
		&r.Documents, &r.QualityScore, &r.Degraded, &r.DurationMS, &r.ProcessedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// collectRecords scans multiple rows into a slice of Records.
func collectRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.SourceID, &r.Subject, &r.Status, &r.Reason, &r.Error, &r.Chunks,
			&r.Documents, &r.QualityScore, &r.Degraded, &r.DurationMS, &r.ProcessedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
