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

// Package index keeps a local full-text index of search documents with
// bleve, so prepared mail can be searched without the remote search
// service.
package index

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/mapping"

	"github.com/bcem/ragprep/internal/models"
	"github.com/bcem/ragprep/internal/searchdoc"
)

// Hit is one search result.
type Hit struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Type     string  `json:"documentType"`
	ParentID string  `json:"parentEmailId,omitempty"`
	Subject  string  `json:"subject"`
	Sender   string  `json:"senderEmail"`
	Snippet  string  `json:"snippet"`
}

// Index is a bleve index of SearchDocuments. It is safe for concurrent use.
type Index struct {
	idx bleve.Index
}

// Open opens the index at path, creating it if needed. An empty path
// creates an in-memory index.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(Mapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	if _, err := os.Stat(path); err == nil {
		idx, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open index %s: %w", path, err)
		}
		return &Index{idx: idx}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat index %s: %w", path, err)
	}

	idx, err := bleve.New(path, Mapping())
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", path, err)
	}
	return &Index{idx: idx}, nil
}

// Mapping builds the bleve mapping from the search document schema.
// Searchable strings are analysed text, other strings are exact keywords.
func Mapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()
	for _, f := range searchdoc.Schema() {
		var fm *mapping.FieldMapping
		switch f.Type {
		case searchdoc.TypeInt, searchdoc.TypeInt64, searchdoc.TypeDouble:
			fm = bleve.NewNumericFieldMapping()
		case searchdoc.TypeBool:
			fm = bleve.NewBooleanFieldMapping()
		case searchdoc.TypeDateTime:
			fm = bleve.NewDateTimeFieldMapping()
		default:
			fm = bleve.NewTextFieldMapping()
			if !f.Searchable {
				fm.Analyzer = keyword.Name
				fm.IncludeInAll = false
			}
		}
		doc.AddFieldMappingsAt(f.Name, fm)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// Publish indexes the documents of one email in a single batch.
func (i *Index) Publish(ctx context.Context, _ *models.EmailRecord, docs []models.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b := i.idx.NewBatch()
	for _, d := range docs {
		if err := b.Index(d.ID(), map[string]any(d)); err != nil {
			return fmt.Errorf("index document %s: %w", d.ID(), err)
		}
	}
	if err := i.idx.Batch(b); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	return nil
}

// Search runs a bleve query string query and returns up to limit hits and
// the total match count.
func (i *Index) Search(q string, limit int) ([]Hit, uint64, error) {
	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(q), limit, 0, false)
	req.Fields = []string{"documentType", "parentEmailId", "subject", "senderEmail", "chunkContent", "allText"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search %q: %w", q, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		text := field(h.Fields, "chunkContent")
		if text == "" {
			text = field(h.Fields, "allText")
		}
		hits = append(hits, Hit{
			ID:       h.ID,
			Score:    h.Score,
			Type:     field(h.Fields, "documentType"),
			ParentID: field(h.Fields, "parentEmailId"),
			Subject:  field(h.Fields, "subject"),
			Sender:   field(h.Fields, "senderEmail"),
			Snippet:  snippet(text, 160),
		})
	}
	return hits, res.Total, nil
}

// Count returns the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}

func field(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
