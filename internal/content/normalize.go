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

package content

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLineEndings = regexp.MustCompile(`\r\n?|\x{2028}|\x{2029}`)
	reHorizontal  = regexp.MustCompile(`[ \t\f\v\p{Zs}]+`)
	reAnySpace    = regexp.MustCompile(`[\s\p{Zs}\x{2028}\x{2029}]+`)
)

// Normalize unifies line endings, collapses horizontal whitespace, trims
// every line and keeps at most one blank line between paragraphs. It is
// idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	s := reLineEndings.ReplaceAllString(text, "\n")
	s = reHorizontal.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimFunc(l, isSpace)
	}
	s = strings.Join(lines, "\n")
	s = reManyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimFunc(s, isSpace)
}

// OptimizeForRAG flattens text to a single line and makes sure it ends in
// terminal punctuation.
func OptimizeForRAG(text string) string {
	s := strings.TrimFunc(reAnySpace.ReplaceAllString(text, " "), isSpace)
	if s == "" {
		return ""
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
