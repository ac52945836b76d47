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

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/searchdoc"
)

// Status is the outcome class of one email in a batch.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Skip and failure reasons recorded on an Outcome.
const (
	ReasonDuplicate      = "duplicate"
	ReasonLowQuality     = "below quality threshold"
	ReasonMissingContent = "missing content"
	ReasonPublish        = "publish failed"
)

// Outcome records what happened to one email.
type Outcome struct {
	SourceID     string
	Subject      string
	Status       Status
	Reason       string
	Error        string
	Chunks       int
	Documents    int
	QualityScore float64
	Degraded     []string
	Duration     time.Duration
	ProcessedAt  time.Time
}

// BatchResult summarises a completed batch.
type BatchResult struct {
	Processed int
	Skipped   int
	Failed    int
	Outcomes  []Outcome
	Elapsed   time.Duration
}

func (b *BatchResult) add(o Outcome) {
	switch o.Status {
	case StatusProcessed:
		b.Processed++
	case StatusSkipped:
		b.Skipped++
	default:
		b.Failed++
	}
	b.Outcomes = append(b.Outcomes, o)
}

// Sink receives the documents built for one email. Implemented by
// queue.Publisher and index.Index.
type Sink interface {
	Publish(ctx context.Context, email *models.EmailRecord, docs []models.SearchDocument) error
}

// Deduper reports whether an email has not been seen before, marking it
// seen when it is new. Forget drops the mark of an email that then failed.
// Implemented by dedup.Filter.
type Deduper interface {
	IsNew(ctx context.Context, email *models.EmailRecord) (bool, error)
	Forget(ctx context.Context, email *models.EmailRecord) error
}

// Ledger persists per-email outcomes. Implemented by store.Store.
type Ledger interface {
	Record(ctx context.Context, o Outcome) error
}

// Observer is notified of every outcome. Implemented by metrics.Metrics.
type Observer interface {
	Observe(o Outcome)
}

// RunnerConfig holds dependencies for the batch runner. Everything except
// Processor is optional.
type RunnerConfig struct {
	Processor *Processor
	Sinks     []Sink
	Dedup     Deduper
	Ledger    Ledger
	Observer  Observer
	Workers   int
}

// Runner processes batches of independent emails over a bounded worker
// pool. One email's failure never affects the others.
type Runner struct {
	processor *Processor
	sinks     []Sink
	dedup     Deduper
	ledger    Ledger
	observer  Observer
	workers   int
	now       func() time.Time
}

// NewRunner creates a batch runner.
func NewRunner(cfg RunnerConfig) *Runner {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		processor: cfg.Processor,
		sinks:     cfg.Sinks,
		dedup:     cfg.Dedup,
		ledger:    cfg.Ledger,
		observer:  cfg.Observer,
		workers:   workers,
		now:       time.Now,
	}
}

// Run processes every email and returns the per-status counts. Emails not
// yet started when ctx is cancelled are abandoned and ctx.Err() is returned
// alongside the partial result.
func (r *Runner) Run(ctx context.Context, emails []*models.EmailRecord) (*BatchResult, error) {
	start := r.now()

	slog.Info("starting batch", "emails", len(emails), "workers", r.workers)

	var (
		mu     sync.Mutex
		result = &BatchResult{}
	)

	g := new(errgroup.Group)
	g.SetLimit(r.workers)

	for _, email := range emails {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			o := r.Handle(ctx, email)
			mu.Lock()
			result.add(o)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Elapsed = time.Since(start)

	slog.Info("batch complete",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"elapsed", result.Elapsed,
	)

	return result, ctx.Err()
}

// Handle processes a single email end to end: dedup, prepare, publish,
// record.
func (r *Runner) Handle(ctx context.Context, email *models.EmailRecord) Outcome {
	start := time.Now()
	o := Outcome{Status: StatusProcessed}
	if email != nil {
		o.SourceID = email.SourceID()
		o.Subject = email.Subject
	}

	claimed := r.handle(ctx, email, &o)
	if claimed && o.Status == StatusFailed {
		if err := r.dedup.Forget(ctx, email); err != nil {
			slog.Warn("failed to release dedup mark", "source", o.SourceID, "error", err)
		}
	}

	o.Duration = time.Since(start)
	o.ProcessedAt = r.now().UTC()

	if r.ledger != nil {
		if err := r.ledger.Record(ctx, o); err != nil {
			slog.Warn("failed to record outcome", "source", o.SourceID, "error", err)
		}
	}
	if r.observer != nil {
		r.observer.Observe(o)
	}
	return o
}

// handle fills in o and reports whether it marked the email as seen.
func (r *Runner) handle(ctx context.Context, email *models.EmailRecord, o *Outcome) (claimed bool) {
	if r.dedup != nil && email != nil {
		isNew, err := r.dedup.IsNew(ctx, email)
		switch {
		case err != nil:
			slog.Warn("dedup check failed", "source", o.SourceID, "error", err)
		case !isNew:
			o.Status, o.Reason = StatusSkipped, ReasonDuplicate
			return false
		default:
			claimed = true
		}
	}

	res, err := r.processor.Process(email)
	if err != nil {
		o.Status, o.Error = StatusFailed, err.Error()
		var missing *searchdoc.MissingContentError
		if errors.As(err, &missing) {
			o.Reason = ReasonMissingContent
		}
		slog.Warn("email processing failed", "source", o.SourceID, "error", err)
		return
	}

	o.QualityScore = res.Cleaned.Quality.OverallScore
	o.Degraded = res.Cleaned.Degraded
	if res.Skipped {
		o.Status, o.Reason = StatusSkipped, ReasonLowQuality
		return
	}
	o.Chunks = len(res.Chunks)
	o.Documents = len(res.Documents)

	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, email, res.Documents); err != nil {
			o.Status, o.Reason, o.Error = StatusFailed, ReasonPublish, err.Error()
			slog.Warn("publish failed", "source", o.SourceID, "error", err)
			return
		}
	}

	slog.Debug("email processed",
		"source", o.SourceID,
		"chunks", o.Chunks,
		"documents", o.Documents,
		"quality", o.QualityScore,
	)
	return claimed
}
