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

package models

// QualityMetrics scores how useful a piece of cleaned text is for retrieval.
// OverallScore is 0 whenever HasMeaningfulContent is false.
type QualityMetrics struct {
	OverallScore         float64 `json:"overallScore"`
	Length               int     `json:"length"`
	WordCount            int     `json:"wordCount"`
	SentenceCount        int     `json:"sentenceCount"`
	ParagraphCount       int     `json:"paragraphCount"`
	ReadabilityScore     float64 `json:"readabilityScore"`
	HasMeaningfulContent bool    `json:"hasMeaningfulContent"`
}

// URLEntity is a URL found in text, parsed into its domain.
type URLEntity struct {
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	IsSecure bool   `json:"isSecure"`
}

// EntityBundle holds the structured tokens recognised in cleaned text.
// Every list is deduplicated and sorted.
type EntityBundle struct {
	Emails       []string    `json:"emails"`
	URLs         []URLEntity `json:"urls"`
	PhoneNumbers []string    `json:"phoneNumbers"`
	Dates        []string    `json:"dates"`
	IPAddresses  []string    `json:"ipAddresses"`
	Numbers      []string    `json:"numbers"`
	EntityCount  int         `json:"entityCount"`
	Error        string      `json:"error,omitempty"`
}

// Count recomputes the total number of entities across all categories.
func (b *EntityBundle) Count() int {
	return len(b.Emails) + len(b.URLs) + len(b.PhoneNumbers) +
		len(b.Dates) + len(b.IPAddresses) + len(b.Numbers)
}

// CleanedContent is the output of the cleaning stages for one email.
type CleanedContent struct {
	OriginalText   string         `json:"originalText"`
	CleanedText    string         `json:"cleanedText"`
	Quality        QualityMetrics `json:"qualityScore"`
	Entities       EntityBundle   `json:"entities"`
	ReductionRatio float64        `json:"reductionRatio"`

	// Degraded lists the stages that fell back to their input.
	Degraded []string `json:"degraded,omitempty"`
}

// Chunk is a bounded, overlapping slice of cleaned text. Positions and
// lengths count runes.
type Chunk struct {
	ChunkNumber         int    `json:"chunkNumber"`
	ChunkID             string `json:"chunkId"`
	Content             string `json:"content"`
	StartPosition       int    `json:"startPosition"`
	EndPosition         int    `json:"endPosition"`
	Length              int    `json:"length"`
	WordCount           int    `json:"wordCount"`
	IsFirst             bool   `json:"isFirst"`
	IsLast              bool   `json:"isLast"`
	TotalChunks         int    `json:"totalChunks"`
	OverlapWithNext     bool   `json:"overlapWithNext"`
	OverlapWithPrevious bool   `json:"overlapWithPrevious"`
}

// Document types written to the search index.
const (
	DocumentTypeEmail = "Email"
	DocumentTypeChunk = "EmailChunk"
)

// SearchDocument is one flattened record for the search index. Keys follow
// the index schema; values are already coerced to their declared types.
type SearchDocument map[string]any

// ID returns the document key.
func (d SearchDocument) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Type returns the documentType field.
func (d SearchDocument) Type() string {
	t, _ := d["documentType"].(string)
	return t
}
