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

// SignatureRules is the ordered table applied by StripSignature. Every rule
// matches from its trigger point to the end of the text, so earlier rules
// shorten what later rules see.
var SignatureRules = []Rule{
	{
		Name:    "delimiter",
		Pattern: regexp.MustCompile(`(?ims)^--[ \t]*$.*`),
	},
	{
		Name:    "divider",
		Pattern: regexp.MustCompile(`(?ims)^[ \t]*(?:_{3,}|-{3,}|={3,})[ \t]*$.*`),
	},
	{
		Name:    "valediction",
		Pattern: regexp.MustCompile(`(?ims)^[ \t]*(?:best regards|kind regards|warm regards|thanks and regards|thanks & regards|sincerely)\b.*`),
	},
	{
		Name:    "mobile-footer",
		Pattern: regexp.MustCompile(`(?is)\bsent from my (?:iphone|ipad|android|samsung|galaxy|blackberry|mobile|phone|smartphone|windows phone)\b.*`),
	},
	{
		Name:    "app-promo",
		Pattern: regexp.MustCompile(`(?is)\bget outlook for (?:ios|android)\b.*`),
	},
	{
		Name:    "contact-line",
		Pattern: regexp.MustCompile(`(?ims)^[ \t]*(?:phone|tel|mobile|email|e-mail|fax)[ \t]*:[ \t]*\S.*`),
	},
	{
		Name:    "trailing-address",
		Pattern: regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b[^\n]*(?:\n[^\n]*){0,5}\z`),
	},
	{
		Name:    "disclaimer",
		Pattern: regexp.MustCompile(`(?is)\b(?:confidentiality notice|disclaimer:|this (?:e-?mail|message)(?: and any (?:files|attachments)(?: transmitted with it)?)? (?:is|are|may contain|contains?) (?:strictly )?(?:confidential|privileged|intended solely)).*`),
	},
}

var reExtraBlankLines = regexp.MustCompile(`\n(?:[ \t]*\n){3,}`)

// StripSignature removes trailing signature blocks, disclaimers and mobile
// footers from plain text. On failure the input is returned unchanged.
func StripSignature(text string) Result[string] {
	return guard(StageSignature, text, func() (string, error) {
		if err := checkLength(text); err != nil {
			return "", err
		}
		s := applyRules(SignatureRules, text)
		s = reExtraBlankLines.ReplaceAllString(s, "\n\n")
		return strings.TrimRightFunc(s, isSpace), nil
	})
}
