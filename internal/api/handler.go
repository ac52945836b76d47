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

// Package api serves the preparation pipeline over HTTP. Clients POST
// email records and either get the prepared documents back or have them
// published to the configured sinks.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bcem/ragprep/internal/eml"
	"github.com/bcem/ragprep/internal/index"
	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/pipeline"
)

// MaxBodyBytes bounds the size of a request body.
const MaxBodyBytes = 32 << 20

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Searcher queries prepared documents. Implemented by index.Index.
type Searcher interface {
	Search(q string, limit int) ([]index.Hit, uint64, error)
}

// HandlerConfig holds dependencies for the HTTP handler. Processor is
// required; the rest are optional.
type HandlerConfig struct {
	Processor *pipeline.Processor
	Runner    *pipeline.Runner
	Searcher  Searcher
	Checks    map[string]HealthCheck
	Metrics   http.Handler
}

// Handler serves the pipeline endpoints.
type Handler struct {
	processor *pipeline.Processor
	runner    *pipeline.Runner
	searcher  Searcher
	checks    map[string]HealthCheck
	metrics   http.Handler
}

// NewHandler creates the HTTP handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		processor: cfg.Processor,
		runner:    cfg.Runner,
		searcher:  cfg.Searcher,
		checks:    cfg.Checks,
		metrics:   cfg.Metrics,
	}
}

// Routes returns the endpoint mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/prepare", h.ServePrepare)
	mux.HandleFunc("POST /v1/process", h.ServeProcess)
	mux.HandleFunc("GET /v1/search", h.ServeSearch)
	mux.HandleFunc("GET /health", h.ServeHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	return mux
}

// PreparedEmail is the response item of /v1/prepare.
type PreparedEmail struct {
	SourceID  string                  `json:"sourceId"`
	Skipped   bool                    `json:"skipped,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Cleaned   *models.CleanedContent  `json:"cleaned,omitempty"`
	Chunks    []models.Chunk          `json:"chunks,omitempty"`
	Documents []models.SearchDocument `json:"documents,omitempty"`
}

// OutcomeView is the JSON form of a pipeline.Outcome.
type OutcomeView struct {
	SourceID     string   `json:"sourceId"`
	Subject      string   `json:"subject,omitempty"`
	Status       string   `json:"status"`
	Reason       string   `json:"reason,omitempty"`
	Error        string   `json:"error,omitempty"`
	Chunks       int      `json:"chunks"`
	Documents    int      `json:"documents"`
	QualityScore float64  `json:"qualityScore"`
	Degraded     []string `json:"degraded,omitempty"`
	DurationMS   int64    `json:"durationMs"`
}

// BatchView is the response of /v1/process.
type BatchView struct {
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	ElapsedMS int64         `json:"elapsedMs"`
	Outcomes  []OutcomeView `json:"outcomes"`
}

// ServePrepare runs the pipeline on the posted records and returns the
// cleaned content, chunks and documents without publishing anything.
func (h *Handler) ServePrepare(w http.ResponseWriter, r *http.Request) {
	emails, ok := h.decode(w, r)
	if !ok {
		return
	}

	out := make([]PreparedEmail, 0, len(emails))
	for _, email := range emails {
		item := PreparedEmail{}
		if email != nil {
			item.SourceID = email.SourceID()
		}
		res, err := h.processor.Process(email)
		if err != nil {
			item.Error = err.Error()
			out = append(out, item)
			continue
		}
		item.Skipped = res.Skipped
		cleaned := res.Cleaned
		cleaned.ReductionRatio = roundRatio(cleaned.ReductionRatio)
		item.Cleaned = &cleaned
		item.Chunks = res.Chunks
		item.Documents = res.Documents
		out = append(out, item)
	}

	writeJSON(w, http.StatusOK, out)
}

// roundRatio rounds a percentage to two decimals for display.
func roundRatio(v float64) float64 {
	return math.Round(v*100) / 100
}

// ServeProcess runs the posted records through the batch runner, which
// deduplicates, publishes and records them.
func (h *Handler) ServeProcess(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "no publishing sinks configured")
		return
	}

	emails, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.runner.Run(r.Context(), emails)
	if err != nil {
		slog.Warn("batch interrupted", "error", err)
	}

	view := BatchView{
		Processed: res.Processed,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		ElapsedMS: res.Elapsed.Milliseconds(),
		Outcomes:  make([]OutcomeView, 0, len(res.Outcomes)),
	}
	for _, o := range res.Outcomes {
		view.Outcomes = append(view.Outcomes, OutcomeView{
			SourceID:     o.SourceID,
			Subject:      o.Subject,
			Status:       string(o.Status),
			Reason:       o.Reason,
			Error:        o.Error,
			Chunks:       o.Chunks,
			Documents:    o.Documents,
			QualityScore: o.QualityScore,
			Degraded:     o.Degraded,
			DurationMS:   o.Duration.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// ServeSearch queries the local index: GET /v1/search?q=...&limit=N.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search index not configured")
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 100)
	}

	hits, total, err := h.searcher.Search(q, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if hits == nil {
		hits = []index.Hit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "hits": hits})
}

// ServeHealth pings every configured dependency.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			slog.Warn("health check failed", "dependency", name, "error", err)
			status[name] = "unhealthy"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	overall := "healthy"
	if !healthy {
		code = http.StatusServiceUnavailable
		overall = "unhealthy"
	}
	writeJSON(w, code, map[string]any{"status": overall, "dependencies": status})
}

// decode reads one record or an array of records from the request body.
// It writes the error response itself and reports whether to continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) ([]*models.EmailRecord, bool) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	emails, err := eml.ReadJSON(body, "request")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(emails) == 0 {
		writeError(w, http.StatusBadRequest, "no email records in request")
		return nil, false
	}
	return emails, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel. The server
// shuts down gracefully when ctx is cancelled; done is closed once it has.
func Serve(ctx context.Context, port int, handler http.Handler) (ready, done <-chan struct{}, err error) {
	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind port %d: %w", port, err)
	}

	readyCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	go func() {
		defer close(doneCh)
		slog.Info("api server listening", "port", port)
		close(readyCh)
		if err := server.Serve(ln); err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
		}
	}()

	return readyCh, doneCh, nil
}
