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
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bcem/ragprep/internal/config"
	"github.com/bcem/ragprep/internal/content"
	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/searchdoc"
)

func defaultConfig() config.PipelineConfig {
	return config.PipelineConfig{
		ChunkSize:        512,
		Overlap:          50,
		RemoveSignatures: true,
		ExtractEntities:  true,
		OptimizeForRAG:   true,
		Workers:          2,
	}
}

func newTestProcessor(t *testing.T, cfg config.PipelineConfig) *Processor {
	t.Helper()
	p, err := NewProcessor(cfg, searchdoc.WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	return p
}

func htmlEmail() *models.EmailRecord {
	return &models.EmailRecord{
		FileName: "planning.msg",
		Subject:  "Quarterly planning update",
		Sender:   models.EmailAddress{Name: "Alice Jones", Address: "alice@corp.com"},
		HTMLBody: `<html><body><p>Hi team,</p>` +
			`<p>The quarterly planning meeting moved to Friday. Please review the budget draft before then. ` +
			`The agenda is at https://intranet.corp.com/agenda today.</p>` +
			`<p>Best regards,<br>Alice</p></body></html>`,
	}
}

// TestProcess_HTMLEmail verifies the full stage chain on an HTML email.
func TestProcess_HTMLEmail(t *testing.T) {
	p := newTestProcessor(t, defaultConfig())

	res, err := p.Process(htmlEmail())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	cleaned := res.Cleaned.CleanedText
	if strings.Contains(cleaned, "<") || strings.Contains(cleaned, "Best regards") {
		t.Errorf("markup or signature left in %q", cleaned)
	}
	if strings.Contains(cleaned, "\n") {
		t.Errorf("RAG-optimised text should be one line: %q", cleaned)
	}
	if !strings.HasPrefix(cleaned, "Hi team, The quarterly planning meeting moved to Friday.") {
		t.Errorf("CleanedText = %q", cleaned)
	}
	if res.Cleaned.OriginalText != htmlEmail().HTMLBody {
		t.Error("OriginalText should be the HTML body")
	}
	if res.Cleaned.ReductionRatio <= 0 {
		t.Errorf("ReductionRatio = %v", res.Cleaned.ReductionRatio)
	}
	if len(res.Cleaned.Degraded) != 0 {
		t.Errorf("unexpected degraded stages %v", res.Cleaned.Degraded)
	}

	urls := res.Cleaned.Entities.URLs
	if len(urls) != 1 || urls[0].Domain != "intranet.corp.com" || !urls[0].IsSecure {
		t.Errorf("URLs = %+v", urls)
	}
	if !res.Cleaned.Quality.HasMeaningfulContent || res.Cleaned.Quality.OverallScore <= 0 {
		t.Errorf("Quality = %+v", res.Cleaned.Quality)
	}

	if len(res.Chunks) != 1 || res.Chunks[0].ChunkID != "planning.msg_chunk_1" {
		t.Fatalf("Chunks = %+v", res.Chunks)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(res.Documents))
	}
	if res.Documents[0].ID() != "email-Quarterly-planning-update" {
		t.Errorf("parent id = %q", res.Documents[0].ID())
	}
	if res.Documents[1].ID() != "email-Quarterly-planning-update-chunk-1" {
		t.Errorf("chunk id = %q", res.Documents[1].ID())
	}
	if res.Skipped {
		t.Error("email should not be skipped")
	}
}

// TestProcess_TogglesOff verifies each stage toggle disables its stage.
func TestProcess_TogglesOff(t *testing.T) {
	cfg := defaultConfig()
	cfg.RemoveSignatures = false
	cfg.ExtractEntities = false
	cfg.OptimizeForRAG = false
	p := newTestProcessor(t, cfg)

	res, err := p.Process(htmlEmail())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	cleaned := res.Cleaned.CleanedText
	if !strings.Contains(cleaned, "Best regards,\nAlice") {
		t.Errorf("signature should be kept: %q", cleaned)
	}
	if !strings.Contains(cleaned, "\n\n") {
		t.Errorf("paragraph breaks should be kept: %q", cleaned)
	}
	if res.Cleaned.Entities.EntityCount != 0 || res.Cleaned.Entities.URLs == nil {
		t.Errorf("entities should be an empty bundle: %+v", res.Cleaned.Entities)
	}
}

// TestProcess_PlainBodyFallback verifies Body is used when there is no HTML.
func TestProcess_PlainBodyFallback(t *testing.T) {
	p := newTestProcessor(t, defaultConfig())

	email := &models.EmailRecord{
		MessageID: "<abc@mail>",
		Subject:   "Status",
		Body:      "Hello team, see attached.\r\n\r\nBest regards,\r\nJohn Smith\r\nSent from my iPhone",
	}
	res, err := p.Process(email)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Cleaned.CleanedText != "Hello team, see attached." {
		t.Errorf("CleanedText = %q", res.Cleaned.CleanedText)
	}
	if res.SourceID != "<abc@mail>" {
		t.Errorf("SourceID = %q", res.SourceID)
	}
}

// TestProcess_QualityThreshold verifies low-scoring emails are skipped
// without documents.
func TestProcess_QualityThreshold(t *testing.T) {
	cfg := defaultConfig()
	cfg.QualityThreshold = 99.9
	p := newTestProcessor(t, cfg)

	res, err := p.Process(htmlEmail())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.Skipped {
		t.Fatal("expected email to be skipped")
	}
	if len(res.Chunks) != 0 || len(res.Documents) != 0 {
		t.Errorf("skipped email produced %d chunks, %d docs", len(res.Chunks), len(res.Documents))
	}
}

// TestProcess_MissingContent verifies an empty email fails with
// MissingContentError.
func TestProcess_MissingContent(t *testing.T) {
	p := newTestProcessor(t, defaultConfig())

	for _, email := range []*models.EmailRecord{nil, {FileName: "blank.msg", Body: " \n "}} {
		_, err := p.Process(email)
		var missing *searchdoc.MissingContentError
		if !errors.As(err, &missing) {
			t.Errorf("expected MissingContentError, got %v", err)
		}
	}
}

// TestProcess_SubjectOnly verifies an email with only a subject yields a
// parent document and no chunks.
func TestProcess_SubjectOnly(t *testing.T) {
	p := newTestProcessor(t, defaultConfig())

	res, err := p.Process(&models.EmailRecord{Subject: "Lunch?"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(res.Chunks) != 0 || len(res.Documents) != 1 {
		t.Errorf("got %d chunks, %d docs", len(res.Chunks), len(res.Documents))
	}
}

// TestNewProcessor_InvalidChunking verifies bad chunk settings are rejected.
func TestNewProcessor_InvalidChunking(t *testing.T) {
	cfg := defaultConfig()
	cfg.Overlap = cfg.ChunkSize

	if _, err := NewProcessor(cfg); err == nil {
		t.Error("expected configuration error")
	}
}

// TestClean_DegradedStage verifies a stage fallback is reported.
func TestClean_DegradedStage(t *testing.T) {
	p := newTestProcessor(t, defaultConfig())

	huge := strings.Repeat("x", content.MaxInputLength+1)
	cleaned := p.Clean(&models.EmailRecord{Body: huge})

	found := false
	for _, s := range cleaned.Degraded {
		if s == content.StageSignature {
			found = true
		}
	}
	if !found {
		t.Errorf("Degraded = %v, want %s", cleaned.Degraded, content.StageSignature)
	}
}

// TestReductionRatio verifies the unrounded percentage and its zero-length guard.
func TestReductionRatio(t *testing.T) {
	tests := []struct {
		original, cleaned string
		want              float64
	}{
		{"abcd", "ab", 50},
		{"abc", "ab", 100.0 / 3},
		{"", "anything", 0},
		{"same", "same", 0},
		{"ééé", "é", 200.0 / 3},
	}

	for _, tt := range tests {
		if got := reductionRatio(tt.original, tt.cleaned); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("reductionRatio(%q, %q) = %v, want %v", tt.original, tt.cleaned, got, tt.want)
		}
	}
}
