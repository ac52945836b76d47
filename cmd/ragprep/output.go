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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bcem/ragprep/internal/models"
)

// jsonlSink writes every document as one JSON line.
type jsonlSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONLSink(w io.Writer) *jsonlSink {
	return &jsonlSink{enc: json.NewEncoder(w)}
}

// Publish writes the documents of one email contiguously.
func (s *jsonlSink) Publish(_ context.Context, _ *models.EmailRecord, docs []models.SearchDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		if err := s.enc.Encode(doc); err != nil {
			return fmt.Errorf("write document %s: %w", doc.ID(), err)
		}
	}
	return nil
}
