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

// Package pipeline runs emails through the preparation stages in order:
// HTML to text, signature stripping, normalisation, entity extraction and
// quality scoring, chunking, and search document building.
package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bcem/ragprep/internal/chunk"
	"github.com/bcem/ragprep/internal/config"
	"github.com/bcem/ragprep/internal/content"
	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/searchdoc"
)

// Result is everything produced for one email.
type Result struct {
	SourceID  string
	Cleaned   models.CleanedContent
	Chunks    []models.Chunk
	Documents []models.SearchDocument

	// Skipped is set when the email scored below the quality threshold.
	// Chunks and Documents are empty in that case.
	Skipped bool
}

// Processor prepares single emails. It holds no per-email state and is
// safe for concurrent use.
type Processor struct {
	cfg     config.PipelineConfig
	chunker *chunk.Chunker
	builder *searchdoc.Builder
}

// NewProcessor creates a Processor. Builder options (clock, ID generator)
// are passed through to the document builder.
func NewProcessor(cfg config.PipelineConfig, opts ...searchdoc.Option) (*Processor, error) {
	c, err := chunk.New(cfg.ChunkSize, cfg.Overlap)
	if err != nil {
		return nil, err
	}

	if len(cfg.StopWords) > 0 {
		opts = append([]searchdoc.Option{searchdoc.WithStopWords(searchdoc.NewStopWords(cfg.StopWords...))}, opts...)
	}

	return &Processor{
		cfg:     cfg,
		chunker: c,
		builder: searchdoc.NewBuilder(opts...),
	}, nil
}

// Process cleans, chunks and flattens one email. The only error it returns
// is *searchdoc.MissingContentError.
func (p *Processor) Process(email *models.EmailRecord) (*Result, error) {
	if email == nil {
		return nil, &searchdoc.MissingContentError{}
	}

	res := &Result{
		SourceID: email.SourceID(),
		Cleaned:  p.Clean(email),
	}

	if t := p.cfg.QualityThreshold; t > 0 && res.Cleaned.Quality.OverallScore < t {
		slog.Info("email below quality threshold, skipping",
			"source", res.SourceID,
			"score", res.Cleaned.Quality.OverallScore,
			"threshold", t,
		)
		res.Skipped = true
		return res, nil
	}

	res.Chunks = p.chunker.Split(res.Cleaned.CleanedText, res.SourceID)

	docs, err := p.builder.Build(email, &res.Cleaned, res.Chunks)
	if err != nil {
		return nil, fmt.Errorf("build documents for %s: %w", res.SourceID, err)
	}
	res.Documents = docs

	return res, nil
}

// Clean runs the fail-open cleaning stages. Stages that fell back to their
// input are listed in Degraded.
func (p *Processor) Clean(email *models.EmailRecord) models.CleanedContent {
	var degraded []string
	note := func(stage string, d bool) {
		if d {
			degraded = append(degraded, stage)
		}
	}

	original, text := email.Body, email.Body
	if strings.TrimSpace(email.HTMLBody) != "" {
		r := content.ToPlainText(email.HTMLBody)
		note(content.StagePlainText, r.Degraded)
		if strings.TrimSpace(r.Value) != "" || strings.TrimSpace(email.Body) == "" {
			original, text = email.HTMLBody, r.Value
		}
	}

	if p.cfg.RemoveSignatures {
		r := content.StripSignature(text)
		note(content.StageSignature, r.Degraded)
		text = r.Value
	}

	normalized := content.Normalize(text)

	entities := content.EmptyEntities()
	if p.cfg.ExtractEntities {
		r := content.ExtractEntities(normalized)
		note(content.StageEntities, r.Degraded)
		entities = r.Value
	}

	q := content.Score(normalized)
	note(content.StageQuality, q.Degraded)

	cleaned := normalized
	if p.cfg.OptimizeForRAG {
		cleaned = content.OptimizeForRAG(normalized)
	}

	return models.CleanedContent{
		OriginalText:   original,
		CleanedText:    cleaned,
		Quality:        q.Value,
		Entities:       entities,
		ReductionRatio: reductionRatio(original, cleaned),
		Degraded:       degraded,
	}
}

// reductionRatio is the percentage of characters removed by cleaning.
func reductionRatio(original, cleaned string) float64 {
	n := utf8.RuneCountInString(original)
	if n == 0 {
		return 0
	}
	return (1 - float64(utf8.RuneCountInString(cleaned))/float64(n)) * 100
}
