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

package searchdoc

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Keyword limits.
const (
	MaxKeywords     = 25
	maxContentWords = 15
)

// StopWords is a set of lowercase words dropped from keyword lists.
type StopWords map[string]struct{}

// NewStopWords builds a set from words, lowercasing each.
func NewStopWords(words ...string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// Has reports whether w is a stop word.
func (s StopWords) Has(w string) bool {
	_, ok := s[w]
	return ok
}

// DefaultStopWords is the English list used when none is configured.
var DefaultStopWords = NewStopWords(
	"a", "about", "above", "after", "again", "against", "all", "also", "and", "any",
	"are", "because", "been", "before", "being", "below", "between", "both", "but",
	"can", "could", "did", "does", "doing", "down", "during", "each", "few", "for",
	"from", "further", "had", "has", "have", "having", "her", "here", "hers", "herself",
	"him", "himself", "his", "how", "into", "its", "itself", "just", "more", "most",
	"mrs", "myself", "nor", "not", "now", "off", "once", "only", "other", "ought",
	"our", "ours", "ourselves", "out", "over", "own", "same", "shall", "she", "should",
	"some", "such", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "there", "these", "they", "this", "those", "through", "too", "under",
	"until", "very", "was", "were", "what", "when", "where", "which", "while", "who",
	"whom", "why", "will", "with", "would", "you", "your", "yours", "yourself",
	"yourselves", "please", "thanks", "regards", "sent", "subject", "email",
)

// TopKeywords picks search keywords for a document: subject words longer
// than 3 characters, sender name words longer than 2, and the 15 most
// frequent content words longer than 4. The merged list is lowercased,
// stripped of stop words, deduplicated and capped at MaxKeywords.
func TopKeywords(subject, senderName, content string, stop StopWords) []string {
	var candidates []string

	for _, w := range words(subject) {
		if runeLen(w) > 3 && !allDigits(w) {
			candidates = append(candidates, w)
		}
	}
	for _, w := range words(senderName) {
		if runeLen(w) > 2 {
			candidates = append(candidates, w)
		}
	}
	candidates = append(candidates, frequentWords(content, maxContentWords)...)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, min(len(candidates), MaxKeywords))
	for _, w := range candidates {
		if stop.Has(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// frequentWords returns the limit most frequent content words, ties
// resolved by first occurrence.
func frequentWords(content string, limit int) []string {
	type entry struct {
		word  string
		count int
		first int
	}

	byWord := make(map[string]*entry)
	var order []*entry
	for _, raw := range strings.Fields(content) {
		lower := strings.ToLower(raw)
		if strings.HasPrefix(lower, "http:") || strings.HasPrefix(lower, "https:") {
			continue
		}
		w := trimWord(lower)
		if runeLen(w) <= 4 || allDigits(w) {
			continue
		}
		if e, ok := byWord[w]; ok {
			e.count++
			continue
		}
		e := &entry{word: w, count: 1, first: len(order)}
		byWord[w] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	out := make([]string, 0, min(limit, len(order)))
	for _, e := range order[:min(limit, len(order))] {
		out = append(out, e.word)
	}
	return out
}

// words splits s on whitespace and returns lowercase tokens with
// surrounding punctuation removed.
func words(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		if w := trimWord(strings.ToLower(f)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func trimWord(w string) string {
	return strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func allDigits(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
