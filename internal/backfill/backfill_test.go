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

package backfill

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bcem/ragprep/internal/config"
	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/pipeline"
)

// --- Mock message source ---

type mockSource struct {
	mu       sync.Mutex
	messages map[string][]string // user -> message IDs
	listErr  map[string]error
	fetchErr map[string]error
	gone     map[string]bool
	since    time.Time
}

func (m *mockSource) ListMessageIDs(_ context.Context, userID string, since time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = since
	if err := m.listErr[userID]; err != nil {
		return nil, err
	}
	return m.messages[userID], nil
}

func (m *mockSource) FetchMessage(_ context.Context, userID, messageID string) (*models.EmailRecord, error) {
	if err := m.fetchErr[messageID]; err != nil {
		return nil, err
	}
	if m.gone[messageID] {
		return nil, nil
	}
	return &models.EmailRecord{
		MessageID: messageID,
		Subject:   "Subject " + messageID,
		Body:      "Test body for " + messageID + " sent to " + userID,
	}, nil
}

// --- Mock sink ---

type mockSink struct {
	mu        sync.Mutex
	published []string
}

func (m *mockSink) Publish(_ context.Context, email *models.EmailRecord, _ []models.SearchDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, email.SourceID())
	return nil
}

func newPipeline(t *testing.T, sink *mockSink) *pipeline.Runner {
	t.Helper()
	proc, err := pipeline.NewProcessor(config.PipelineConfig{ChunkSize: 200, Overlap: 20, RemoveSignatures: true})
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	return pipeline.NewRunner(pipeline.RunnerConfig{Processor: proc, Sinks: []pipeline.Sink{sink}, Workers: 2})
}

// TestBackfill_ListsAndProcesses verifies every fetched message goes
// through the pipeline and is counted per user.
func TestBackfill_ListsAndProcesses(t *testing.T) {
	src := &mockSource{
		messages: map[string][]string{
			"user1": {"msg-1", "msg-2", "msg-3"},
			"user2": {"msg-4"},
		},
		fetchErr: map[string]error{"msg-2": errors.New("boom")},
		gone:     map[string]bool{"msg-3": true},
	}
	sink := &mockSink{}

	r := NewRunner(RunnerConfig{Source: src, Pipeline: newPipeline(t, sink)})
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	res, err := r.Run(context.Background(), BackfillRequest{
		TenantAlias: "contoso",
		Users:       []string{"user1", "user2"},
		Since:       48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !src.since.Equal(fixed.Add(-48 * time.Hour)) {
		t.Errorf("since = %v", src.since)
	}
	if len(res.UserResults) != 2 {
		t.Fatalf("expected 2 user results, got %d", len(res.UserResults))
	}

	u1 := res.UserResults[0]
	if u1.Fetched != 1 || u1.Processed != 1 || u1.Errors != 1 {
		t.Errorf("user1 = %+v", u1)
	}
	if res.TotalProcessed != 2 || res.TotalFailed != 0 {
		t.Errorf("totals = %+v", res)
	}
	if len(sink.published) != 2 {
		t.Errorf("published = %v", sink.published)
	}
}

// TestBackfill_ListErrorContinues verifies one failing mailbox does not stop
// the others.
func TestBackfill_ListErrorContinues(t *testing.T) {
	src := &mockSource{
		messages: map[string][]string{"ok": {"msg-1"}},
		listErr:  map[string]error{"bad": errors.New("HTTP 403")},
	}
	sink := &mockSink{}

	r := NewRunner(RunnerConfig{Source: src, Pipeline: newPipeline(t, sink)})

	res, err := r.Run(context.Background(), BackfillRequest{Users: []string{"bad", "ok"}, Since: time.Hour})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.UserResults[0].Errors != 1 || res.UserResults[1].Processed != 1 {
		t.Errorf("user results = %+v", res.UserResults)
	}
}

// TestBackfill_EmptyMailbox verifies clean completion with zero messages.
func TestBackfill_EmptyMailbox(t *testing.T) {
	src := &mockSource{messages: map[string][]string{}}

	r := NewRunner(RunnerConfig{Source: src, Pipeline: newPipeline(t, &mockSink{})})

	res, err := r.Run(context.Background(), BackfillRequest{Users: []string{"user1"}, Since: time.Hour})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if ur := res.UserResults[0]; ur.Fetched != 0 || ur.Processed != 0 || ur.Errors != 0 {
		t.Errorf("user result = %+v", ur)
	}
}

// TestBackfill_Cancelled verifies cancellation stops the run.
func TestBackfill_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(RunnerConfig{Source: &mockSource{}, Pipeline: newPipeline(t, &mockSink{})})

	_, err := r.Run(ctx, BackfillRequest{Users: []string{"user1"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
