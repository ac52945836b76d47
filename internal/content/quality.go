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
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bcem/ragprep/internal/models"
)

var (
	reSentenceEnd  = regexp.MustCompile(`[.!?]+`)
	reParagraphGap = regexp.MustCompile(`\n\s*\n`)
	reWordRun      = regexp.MustCompile(`[\p{L}\p{N}_]{3,}`)
	reAnyLetter    = regexp.MustCompile(`\p{L}`)
)

// Score rates text for retrieval usefulness on a 0-100 scale.
func Score(text string) Result[models.QualityMetrics] {
	return guard(StageQuality, models.QualityMetrics{}, func() (models.QualityMetrics, error) {
		if err := checkLength(text); err != nil {
			return models.QualityMetrics{}, err
		}
		return score(text), nil
	})
}

func score(text string) models.QualityMetrics {
	if strings.TrimSpace(text) == "" {
		return models.QualityMetrics{}
	}

	m := models.QualityMetrics{
		Length:         utf8.RuneCountInString(text),
		WordCount:      len(strings.Fields(text)),
		SentenceCount:  countNonEmpty(reSentenceEnd.Split(text, -1)),
		ParagraphCount: countNonEmpty(reParagraphGap.Split(text, -1)),
	}

	var avgWords float64
	if m.SentenceCount > 0 {
		avgWords = float64(m.WordCount) / float64(m.SentenceCount)
	}
	m.ReadabilityScore = clamp(100-avgWords*2, 0, 100)

	m.HasMeaningfulContent = m.WordCount > 10 &&
		m.SentenceCount > 1 &&
		reWordRun.MatchString(text) &&
		reAnyLetter.MatchString(text)
	if !m.HasMeaningfulContent {
		return m
	}

	lengthScore := math.Min(100, float64(m.Length)/10)
	wordScore := math.Min(100, float64(m.WordCount)*2)
	structureScore := math.Min(100, float64(m.ParagraphCount)*20)
	overall := math.Min(100, lengthScore*0.3+wordScore*0.4+structureScore*0.2+m.ReadabilityScore*0.1)
	m.OverallScore = math.Round(overall*10) / 10
	return m
}

func countNonEmpty(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
