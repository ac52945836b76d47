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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcem/ragprep/internal/config"
	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/pipeline"
)

// TestJSONLSink verifies one JSON object is written per document.
func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	sink := newJSONLSink(&buf)

	docs := []models.SearchDocument{
		{"id": "email-a", "documentType": "Email"},
		{"id": "email-a-chunk-1", "documentType": "EmailChunk"},
	}
	if err := sink.Publish(context.Background(), &models.EmailRecord{}, docs); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &doc); err != nil {
		t.Fatalf("line 2 is not JSON: %v", err)
	}
	if doc["id"] != "email-a-chunk-1" {
		t.Errorf("id = %v", doc["id"])
	}
}

// TestSplitList verifies comma-separated flag parsing.
func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a@corp.com", []string{"a@corp.com"}},
		{" a@corp.com, ,b@corp.com ", []string{"a@corp.com", "b@corp.com"}},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestFindTenant verifies alias lookup is case-insensitive.
func TestFindTenant(t *testing.T) {
	tenants := []config.TenantConfig{{Alias: "contoso"}, {Alias: "fabrikam"}}
	if got := findTenant(tenants, "Fabrikam"); got == nil || got.Alias != "fabrikam" {
		t.Errorf("findTenant(Fabrikam) = %v", got)
	}
	if got := findTenant(tenants, "unknown"); got != nil {
		t.Errorf("findTenant(unknown) = %v, want nil", got)
	}
}

// TestPrintSummary verifies only non-processed outcomes are itemised.
func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &pipeline.BatchResult{
		Processed: 1, Skipped: 1, Failed: 1,
		Outcomes: []pipeline.Outcome{
			{SourceID: "ok.eml", Status: pipeline.StatusProcessed},
			{SourceID: "dup.eml", Status: pipeline.StatusSkipped, Reason: pipeline.ReasonDuplicate},
			{SourceID: "bad.eml", Status: pipeline.StatusFailed, Reason: pipeline.ReasonPublish, Error: "redis down"},
		},
	})

	out := buf.String()
	for _, want := range []string{"processed 1, skipped 1, failed 1", "dup.eml (duplicate)", "bad.eml (publish failed): redis down"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ok.eml") {
		t.Errorf("summary lists processed email:\n%s", out)
	}
}

// TestProcessCommand runs the process subcommand end to end on a JSON file
// and checks the JSONL output.
func TestProcessCommand(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("INDEX_PATH", "")

	dir := t.TempDir()
	in := filepath.Join(dir, "mail.json")
	record := `{"subject": "Forecast review", "body": "Please review the quarterly forecast before Friday.",
		"sender": {"name": "Alice", "email": "alice@corp.com"}}`
	if err := os.WriteFile(in, []byte(record), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	out := filepath.Join(dir, "docs.jsonl")

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"process", in, "--output", out, "--log-level", "error"})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("process failed: %v\n%s", err, stderr.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected parent and one chunk, got %d lines", len(lines))
	}
	if !strings.Contains(stderr.String(), "processed 1, skipped 0, failed 0") {
		t.Errorf("summary = %q", stderr.String())
	}
}
