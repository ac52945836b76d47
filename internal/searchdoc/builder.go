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

// Package searchdoc flattens a processed email into the documents written
// to the search index: one parent document per email and one child
// document per chunk.
package searchdoc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/ragprep/internal/models"
)

const (
	idPrefix     = "email-"
	maxIDStemLen = 50
	chunkIDInfix = "-chunk-"
)

var (
	reIDDisallowed = regexp.MustCompile(`[^A-Za-z0-9\-_.]+`)
	reIDDashes     = regexp.MustCompile(`-{2,}`)
)

// MissingContentError is returned when an email has neither a subject nor
// any body text, so there is nothing to index.
type MissingContentError struct {
	SourceID string
}

func (e *MissingContentError) Error() string {
	if e.SourceID == "" {
		return "email has no subject or body to index"
	}
	return fmt.Sprintf("email %q has no subject or body to index", e.SourceID)
}

// Builder turns processed emails into search documents.
type Builder struct {
	stop  StopWords
	now   func() time.Time
	newID func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithStopWords replaces the default stop word list.
func WithStopWords(stop StopWords) Option {
	return func(b *Builder) { b.stop = stop }
}

// WithClock sets the source of processedDate.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithIDGenerator sets the fallback used when a subject yields no ID.
func WithIDGenerator(gen func() string) Option {
	return func(b *Builder) { b.newID = gen }
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		stop:  DefaultStopWords,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BaseID derives a document key from a subject. It returns "" when the
// subject has no usable characters.
func BaseID(subject string) string {
	stem := reIDDisallowed.ReplaceAllString(strings.TrimSpace(subject), "-")
	stem = reIDDashes.ReplaceAllString(stem, "-")
	stem = strings.Trim(stem, "-")
	if len(stem) > maxIDStemLen {
		stem = strings.Trim(stem[:maxIDStemLen], "-")
	}
	if stem == "" {
		return ""
	}
	return idPrefix + stem
}

// ChunkID returns the document key of chunk n of the email with baseID.
func ChunkID(baseID string, n int) string {
	return baseID + chunkIDInfix + strconv.Itoa(n)
}

// Build returns the parent document followed by one document per
// non-empty chunk.
func (b *Builder) Build(email *models.EmailRecord, cleaned *models.CleanedContent, chunks []models.Chunk) ([]models.SearchDocument, error) {
	if email == nil {
		return nil, &MissingContentError{}
	}
	if cleaned == nil {
		cleaned = &models.CleanedContent{}
	}
	if !email.HasContent() && strings.TrimSpace(cleaned.CleanedText) == "" {
		return nil, &MissingContentError{SourceID: email.SourceID()}
	}

	baseID := BaseID(email.Subject)
	if baseID == "" {
		baseID = idPrefix + b.newID()
	}
	processed := b.now()

	docs := make([]models.SearchDocument, 0, len(chunks)+1)
	docs = append(docs, b.parent(baseID, email, cleaned, len(chunks), processed))

	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		docs = append(docs, b.child(baseID, email, ch, processed))
	}
	return docs, nil
}

func (b *Builder) parent(baseID string, email *models.EmailRecord, cleaned *models.CleanedContent, totalChunks int, processed time.Time) models.SearchDocument {
	raw := b.common(email, processed)
	raw["id"] = baseID
	raw["documentType"] = models.DocumentTypeEmail
	raw["messageId"] = email.MessageID
	raw["toRecipients"] = addresses(email.Recipients.To)
	raw["ccRecipients"] = addresses(email.Recipients.CC)
	raw["bccRecipients"] = addresses(email.Recipients.BCC)
	raw["size"] = email.Size
	raw["hasAttachments"] = len(email.Attachments) > 0
	raw["attachmentCount"] = len(email.Attachments)
	raw["attachmentNames"] = attachmentNames(email.Attachments)
	raw["allText"] = cleaned.CleanedText
	raw["totalChunks"] = totalChunks
	raw["searchKeywords"] = TopKeywords(email.Subject, email.Sender.Name, cleaned.CleanedText, b.stop)

	raw["qualityScore"] = cleaned.Quality.OverallScore
	raw["wordCount"] = cleaned.Quality.WordCount
	raw["hasMeaningfulContent"] = cleaned.Quality.HasMeaningfulContent
	raw["reductionRatio"] = cleaned.ReductionRatio

	ents := cleaned.Entities
	raw["entityCount"] = ents.EntityCount
	raw["emailAddresses"] = ents.Emails
	raw["phoneNumbers"] = ents.PhoneNumbers
	raw["dates"] = ents.Dates
	urls := make([]string, 0, len(ents.URLs))
	var domains []string
	seen := make(map[string]struct{})
	for _, u := range ents.URLs {
		urls = append(urls, u.URL)
		if _, dup := seen[u.Domain]; u.Domain != "" && !dup {
			seen[u.Domain] = struct{}{}
			domains = append(domains, u.Domain)
		}
	}
	raw["urls"] = urls
	raw["urlDomains"] = domains

	return models.SearchDocument(finalize(raw))
}

func (b *Builder) child(baseID string, email *models.EmailRecord, ch models.Chunk, processed time.Time) models.SearchDocument {
	raw := b.common(email, processed)
	raw["id"] = ChunkID(baseID, ch.ChunkNumber)
	raw["documentType"] = models.DocumentTypeChunk
	raw["parentEmailId"] = baseID
	raw["chunkContent"] = ch.Content
	raw["allText"] = ch.Content
	raw["chunkNumber"] = ch.ChunkNumber
	raw["totalChunks"] = ch.TotalChunks
	raw["chunkStartPosition"] = ch.StartPosition
	raw["chunkEndPosition"] = ch.EndPosition
	raw["chunkLength"] = ch.Length
	raw["chunkWordCount"] = ch.WordCount
	raw["isFirstChunk"] = ch.IsFirst
	raw["isLastChunk"] = ch.IsLast
	raw["searchKeywords"] = TopKeywords(email.Subject, email.Sender.Name, ch.Content, b.stop)
	return models.SearchDocument(finalize(raw))
}

// common holds the fields denormalized onto every document.
func (b *Builder) common(email *models.EmailRecord, processed time.Time) map[string]any {
	importance := email.Importance
	if importance == "" {
		importance = models.ImportanceNormal
	}
	return map[string]any{
		"fileName":      email.FileName,
		"subject":       email.Subject,
		"senderName":    email.Sender.Name,
		"senderEmail":   email.Sender.Address,
		"sentDate":      email.SentAt,
		"receivedDate":  email.ReceivedAt,
		"importance":    string(importance),
		"processedDate": processed,
	}
}

func addresses(list []models.EmailAddress) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if s := a.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func attachmentNames(list []models.Attachment) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a.FileName != "" {
			out = append(out, a.FileName)
		}
	}
	return out
}
