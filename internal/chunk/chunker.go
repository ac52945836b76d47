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

// Package chunk splits cleaned text into overlapping, word-aligned chunks
// sized for embedding and indexing.
package chunk

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/bcem/ragprep/internal/models"
)

// Defaults used when the configuration leaves the values unset.
const (
	DefaultSize    = 512
	DefaultOverlap = 50
)

// ConfigurationError reports chunking parameters that can never produce a
// valid split. It indicates a caller bug, not bad input text.
type ConfigurationError struct {
	Size    int
	Overlap int
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid chunk configuration (size=%d, overlap=%d): %s", e.Size, e.Overlap, e.Reason)
}

// Validate checks size and overlap.
func Validate(size, overlap int) error {
	switch {
	case size <= 0:
		return &ConfigurationError{Size: size, Overlap: overlap, Reason: "chunk size must be positive"}
	case overlap < 0:
		return &ConfigurationError{Size: size, Overlap: overlap, Reason: "overlap must not be negative"}
	case overlap >= size:
		return &ConfigurationError{Size: size, Overlap: overlap, Reason: "overlap must be smaller than chunk size"}
	}
	return nil
}

// Chunker splits text with a fixed size and overlap.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker after validating its parameters.
func New(size, overlap int) (*Chunker, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split cuts text into chunks of at most roughly size runes, each starting
// overlap runes before the previous one ended. The cursor keeps advancing
// until it passes the end of the text, so the tail is repeated in shorter
// chunks when overlap > 0. Chunk IDs are derived from sourceID. Blank text
// yields no chunks.
func (c *Chunker) Split(text, sourceID string) []models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if strings.TrimSpace(text) == "" {
		return []models.Chunk{}
	}

	if n <= c.size {
		ch := newChunk(1, sourceID, strings.TrimSpace(text), 0, n-1)
		return finish([]models.Chunk{ch}, n)
	}

	var chunks []models.Chunk
	for pos := 0; pos < n; {
		end := min(pos+c.size-1, n-1)
		if end < n-1 {
			end = c.boundary(runes, pos, end)
		}

		if content := strings.TrimSpace(string(runes[pos : end+1])); content != "" {
			chunks = append(chunks, newChunk(len(chunks)+1, sourceID, content, pos, end))
		}

		pos = max(end+1-c.overlap, pos+1)
	}

	return finish(chunks, n)
}

// boundary moves a candidate end onto the nearest space. Backward search
// stays inside the current chunk, forward search looks at most one chunk
// length ahead. On a tie the forward space wins.
func (c *Chunker) boundary(runes []rune, pos, end int) int {
	next := -1
	limit := min(end+c.size, len(runes)-1)
	for i := end; i <= limit; i++ {
		if runes[i] == ' ' {
			next = i
			break
		}
	}

	prev := -1
	for i := end; i > pos; i-- {
		if runes[i] == ' ' {
			prev = i
			break
		}
	}

	switch {
	case next >= 0 && prev >= 0:
		if next-end <= end-prev {
			return next
		}
		return prev
	case next >= 0:
		return next
	case prev >= 0:
		return prev
	default:
		return end
	}
}

func newChunk(number int, sourceID, content string, start, end int) models.Chunk {
	return models.Chunk{
		ChunkNumber:   number,
		ChunkID:       sourceID + "_chunk_" + strconv.Itoa(number),
		Content:       content,
		StartPosition: start,
		EndPosition:   end,
		Length:        len([]rune(content)),
		WordCount:     len(strings.FieldsFunc(content, unicode.IsSpace)),
	}
}

// finish fills in the fields that depend on the whole chunk list.
func finish(chunks []models.Chunk, textLen int) []models.Chunk {
	if chunks == nil {
		return []models.Chunk{}
	}
	total := len(chunks)
	for i := range chunks {
		ch := &chunks[i]
		ch.TotalChunks = total
		ch.IsFirst = i == 0
		ch.IsLast = i == total-1
		ch.OverlapWithNext = ch.EndPosition+1 < textLen
		ch.OverlapWithPrevious = ch.StartPosition > 0
	}
	return chunks
}

// Split is a convenience wrapper that validates the parameters and splits
// text in one call.
func Split(text string, size, overlap int, sourceID string) ([]models.Chunk, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text, sourceID), nil
}
