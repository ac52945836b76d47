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
)

// blockedElements are removed together with everything between their
// opening and closing tags.
var blockedElements = []string{"script", "style", "object", "embed", "applet", "form"}

var (
	reTagWithAttrs   = regexp.MustCompile(`<[a-zA-Z][^>]*>`)
	reEventHandler   = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
	rePixelWidth     = regexp.MustCompile(`(?i)(?:^|[\s;"'])width\s*[:=]\s*["']?\s*(\d+)`)
	rePixelHeight    = regexp.MustCompile(`(?i)(?:^|[\s;"'])height\s*[:=]\s*["']?\s*(\d+)`)
	reTrackingParam  = regexp.MustCompile(`(?i)(\?|&(?:amp;)?)utm_[a-z0-9_]*=[^&#"'\s<>]*(&(?:amp;)?)?`)
	reCollapseSpaces = regexp.MustCompile(`[ \t\f\v\r\p{Zs}]+`)
	reSpaceAroundNL  = regexp.MustCompile(` *\n *`)
	reManyNewlines   = regexp.MustCompile(`\n{3,}`)
)

// SanitizeRules is the ordered rule table applied by Sanitize.
var SanitizeRules = buildSanitizeRules()

func buildSanitizeRules() []Rule {
	rules := []Rule{{
		Name:    "comments",
		Pattern: regexp.MustCompile(`(?s)<!--.*?-->`),
	}}
	for _, tag := range blockedElements {
		rules = append(rules, Rule{
			Name:    tag,
			Pattern: regexp.MustCompile(`(?is)<` + tag + `\b[^>]*>.*?</` + tag + `\s*>`),
		})
	}
	rules = append(rules,
		Rule{
			Name:    "dangling-blocked-tags",
			Pattern: regexp.MustCompile(`(?i)</?(?:` + strings.Join(blockedElements, "|") + `)\b[^>]*>`),
		},
		Rule{
			Name:    "tracking-pixels",
			Pattern: regexp.MustCompile(`(?i)<img\b[^>]*>`),
			Replace: func(tag string) string {
				if isTrackingPixel(tag) {
					return ""
				}
				return tag
			},
		},
		Rule{
			Name:    "event-handlers",
			Pattern: reTagWithAttrs,
			Replace: func(tag string) string {
				return reEventHandler.ReplaceAllString(tag, "")
			},
		},
		Rule{
			Name:    "tracking-params",
			Pattern: reTrackingParam,
			Replace: stripTrackingParam,
			// A removed parameter consumes the separator of the next one.
			Repeat: true,
		},
	)
	return rules
}

// PlainTextRules map block-level markup onto line breaks and drop the rest.
var PlainTextRules = []Rule{
	{Name: "line-breaks", Pattern: regexp.MustCompile(`(?i)<br\s*/?>`), Replace: literal("\n")},
	{Name: "list-items", Pattern: regexp.MustCompile(`(?i)<li\b[^>]*>`), Replace: literal("\n• ")},
	{Name: "blocks", Pattern: regexp.MustCompile(`(?i)</?(?:p|div|h[1-6])\b[^>]*>`), Replace: literal("\n\n")},
	{Name: "tags", Pattern: regexp.MustCompile(`(?s)<[^>]+>`)},
}

var entityDecoder = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// Sanitize strips active content, tracking pixels, inline event handlers and
// utm_* parameters from html. On failure the input is returned unchanged.
func Sanitize(html string) Result[string] {
	return guard(StageSanitize, html, func() (string, error) {
		if err := checkLength(html); err != nil {
			return "", err
		}
		return sanitize(html), nil
	})
}

// ToPlainText sanitises html and renders it as plain text, keeping
// paragraph breaks and list bullets.
func ToPlainText(html string) Result[string] {
	return guard(StagePlainText, html, func() (string, error) {
		if err := checkLength(html); err != nil {
			return "", err
		}
		s := applyRules(PlainTextRules, sanitize(html))
		s = entityDecoder.Replace(s)
		s = reCollapseSpaces.ReplaceAllString(s, " ")
		s = reSpaceAroundNL.ReplaceAllString(s, "\n")
		s = reManyNewlines.ReplaceAllString(s, "\n\n")
		return strings.TrimSpace(s), nil
	})
}

func sanitize(html string) string {
	if html == "" {
		return ""
	}
	return applyRules(SanitizeRules, html)
}

func stripTrackingParam(m string) string {
	sub := reTrackingParam.FindStringSubmatch(m)
	if sub == nil {
		return m
	}
	if sub[2] != "" {
		// Followed by another parameter: keep the leading separator for it.
		return sub[1]
	}
	return ""
}

func isTrackingPixel(tag string) bool {
	w := rePixelWidth.FindStringSubmatch(tag)
	h := rePixelHeight.FindStringSubmatch(tag)
	return w != nil && h != nil && w[1] == "1" && h[1] == "1"
}
