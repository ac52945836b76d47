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

// Package backfill prepares historical mail: it lists each mailbox's
// messages within a lookback window, fetches them and runs them through
// the preparation pipeline as one batch per user.
package backfill

import (
	"context"
	"log/slog"
	"time"

	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/pipeline"
)

// MessageSource lists and fetches mailbox messages. Implemented by
// graph.Client.
type MessageSource interface {
	ListMessageIDs(ctx context.Context, userID string, since time.Time) ([]string, error)
	FetchMessage(ctx context.Context, userID, messageID string) (*models.EmailRecord, error)
}

// BatchRunner prepares a batch of emails. Implemented by pipeline.Runner.
type BatchRunner interface {
	Run(ctx context.Context, emails []*models.EmailRecord) (*pipeline.BatchResult, error)
}

// BackfillRequest defines the scope of a historical run.
type BackfillRequest struct {
	TenantAlias string
	Users       []string      // user IDs / UPNs to backfill
	Since       time.Duration // lookback window (e.g. 168h = 1 week)
}

// BackfillResult summarises a completed backfill run.
type BackfillResult struct {
	TenantAlias    string
	UserResults    []UserResult
	TotalProcessed int
	TotalSkipped   int
	TotalFailed    int
	Elapsed        time.Duration
}

// UserResult tracks per-user backfill progress.
type UserResult struct {
	UserID    string
	Fetched   int
	Processed int
	Skipped   int
	Failed    int
	Errors    int // list or fetch errors
}

// RunnerConfig holds dependencies for the backfill runner.
type RunnerConfig struct {
	Source   MessageSource
	Pipeline BatchRunner
}

// Runner performs historical backfill.
type Runner struct {
	source   MessageSource
	pipeline BatchRunner
	now      func() time.Time
}

// NewRunner creates a backfill runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		source:   cfg.Source,
		pipeline: cfg.Pipeline,
		now:      time.Now,
	}
}

// Run performs the backfill for all specified users. A failing user is
// recorded and the run continues; only cancellation stops it early.
func (r *Runner) Run(ctx context.Context, req BackfillRequest) (*BackfillResult, error) {
	start := r.now()
	since := start.UTC().Add(-req.Since)

	slog.Info("starting historical backfill",
		"tenant", req.TenantAlias,
		"users", len(req.Users),
		"since", since.Format(time.RFC3339),
	)

	result := &BackfillResult{TenantAlias: req.TenantAlias}

	for _, userID := range req.Users {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ur := r.backfillUser(ctx, userID, since)

		result.UserResults = append(result.UserResults, ur)
		result.TotalProcessed += ur.Processed
		result.TotalSkipped += ur.Skipped
		result.TotalFailed += ur.Failed
	}

	result.Elapsed = time.Since(start)

	slog.Info("historical backfill complete",
		"tenant", req.TenantAlias,
		"total_processed", result.TotalProcessed,
		"total_skipped", result.TotalSkipped,
		"total_failed", result.TotalFailed,
		"elapsed", result.Elapsed,
	)

	return result, ctx.Err()
}

// backfillUser lists, fetches and prepares one mailbox.
func (r *Runner) backfillUser(ctx context.Context, userID string, since time.Time) UserResult {
	ur := UserResult{UserID: userID}

	ids, err := r.source.ListMessageIDs(ctx, userID, since)
	if err != nil {
		slog.Error("backfill: list messages failed", "user", userID, "error", err)
		ur.Errors++
		if len(ids) == 0 {
			return ur
		}
	}

	emails := make([]*models.EmailRecord, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		rec, err := r.source.FetchMessage(ctx, userID, id)
		if err != nil {
			slog.Warn("backfill: fetch message failed", "message_id", id, "error", err)
			ur.Errors++
			continue
		}
		if rec == nil {
			continue
		}
		emails = append(emails, rec)
	}
	ur.Fetched = len(emails)

	if len(emails) > 0 {
		batch, err := r.pipeline.Run(ctx, emails)
		if err != nil {
			slog.Warn("backfill: batch interrupted", "user", userID, "error", err)
		}
		if batch != nil {
			ur.Processed, ur.Skipped, ur.Failed = batch.Processed, batch.Skipped, batch.Failed
		}
	}

	slog.Info("user backfill complete",
		"user", userID,
		"fetched", ur.Fetched,
		"processed", ur.Processed,
		"skipped", ur.Skipped,
		"failed", ur.Failed,
		"errors", ur.Errors,
	)

	return ur
}
