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

// Package content holds the fail-open cleaning stages of the preparation
// pipeline: HTML sanitising, signature stripping, normalisation, entity
// extraction and quality scoring. No stage returns an error; a stage that
// cannot do its job hands back its fallback inside a degraded Result.
package content

import (
	"fmt"
	"log/slog"
	"regexp"
)

// Stage names reported in degraded results and logs.
const (
	StageSanitize  = "html-sanitizer"
	StagePlainText = "html-to-text"
	StageSignature = "signature-stripper"
	StageEntities  = "entity-extractor"
	StageQuality   = "quality-scorer"
)

// MaxInputLength bounds the text a single stage will process. Larger inputs
// are passed through untouched as a degraded result.
const MaxInputLength = 8 << 20

// Result is the outcome of a fail-open stage. When Degraded is set, Value
// holds the fallback and Err carries the diagnostic.
type Result[T any] struct {
	Value    T
	Degraded bool
	Err      error
}

// guard runs fn for the named stage. An error or a panic inside fn yields a
// degraded Result holding fallback.
func guard[T any](stage string, fallback T, fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = degraded(stage, fallback, fmt.Errorf("panic: %v", r))
		}
	}()

	v, err := fn()
	if err != nil {
		return degraded(stage, fallback, err)
	}
	return Result[T]{Value: v}
}

func degraded[T any](stage string, fallback T, err error) Result[T] {
	err = fmt.Errorf("%s: %w", stage, err)
	slog.Warn("content stage degraded, using fallback",
		"stage", stage,
		"error", err,
	)
	return Result[T]{Value: fallback, Degraded: true, Err: err}
}

func checkLength(s string) error {
	if len(s) > MaxInputLength {
		return fmt.Errorf("input of %d bytes exceeds limit of %d", len(s), MaxInputLength)
	}
	return nil
}

// maxRepeat caps fixed-point iteration of repeating rules.
const maxRepeat = 16

// Rule is one entry of an ordered rewrite table. Matches of Pattern are
// replaced by Replace(match), or removed when Replace is nil. A Repeat rule
// is reapplied until the text stops changing.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace func(match string) string
	Repeat  bool
}

// Apply runs the rule over s.
func (r Rule) Apply(s string) string {
	out := r.apply(s)
	for i := 0; r.Repeat && out != s && i < maxRepeat; i++ {
		s, out = out, r.apply(out)
	}
	return out
}

func (r Rule) apply(s string) string {
	if r.Replace == nil {
		return r.Pattern.ReplaceAllString(s, "")
	}
	return r.Pattern.ReplaceAllStringFunc(s, r.Replace)
}

func applyRules(rules []Rule, s string) string {
	for _, r := range rules {
		s = r.Apply(s)
	}
	return s
}

func literal(repl string) func(string) string {
	return func(string) string { return repl }
}
