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
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/bcem/ragprep/internal/models"
)

const months = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

const octet = `(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)`

var (
	reEmail = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	reURL   = regexp.MustCompile(`(?i)https?://[^\s<>"'{}]+`)
	rePhone = regexp.MustCompile(
		`\b\d{3}[-.]?\d{3}[-.]?\d{4}\b` +
			`|\(\d{3}\)\s*\d{3}-\d{4}\b` +
			`|\+\d{1,3}[\s-]?\d{1,4}[\s-]?\d{3,4}[\s-]?\d{3,4}\b` +
			`|\b\d{3} \d{3} \d{4}\b`)
	reDate = regexp.MustCompile(
		`\b\d{1,2}/\d{1,2}/(?:\d{4}|\d{2})\b` +
			`|\b\d{4}-\d{1,2}-\d{1,2}\b` +
			`|(?i:\b(?:` + months + `)\.?\s+\d{1,2},\s+\d{4}\b)` +
			`|(?i:\b\d{1,2}\s+(?:` + months + `)\.?\s+\d{4}\b)`)
	reIPv4   = regexp.MustCompile(`\b` + octet + `\.` + octet + `\.` + octet + `\.` + octet + `\b`)
	reNumber = regexp.MustCompile(
		`\$(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?` +
			`|\b\d+(?:\.\d+)?%` +
			`|\b\d{1,3}(?:,\d{3})+\b` +
			`|\b\d+\.\d+\b`)
)

// ExtractEntities scans text for email addresses, URLs, phone numbers,
// dates, IPv4 addresses and numeric tokens. On failure it returns an empty
// bundle whose Error field says why.
func ExtractEntities(text string) Result[models.EntityBundle] {
	res := guard(StageEntities, EmptyEntities(), func() (models.EntityBundle, error) {
		if err := checkLength(text); err != nil {
			return models.EntityBundle{}, err
		}
		return extractEntities(text), nil
	})
	if res.Degraded && res.Err != nil {
		res.Value.Error = res.Err.Error()
	}
	return res
}

func extractEntities(text string) models.EntityBundle {
	if strings.TrimSpace(text) == "" {
		return EmptyEntities()
	}

	b := models.EntityBundle{
		Emails:       uniqueSorted(reEmail.FindAllString(text, -1)),
		PhoneNumbers: uniqueSorted(trimAll(rePhone.FindAllString(text, -1))),
		Dates:        uniqueSorted(reDate.FindAllString(text, -1)),
		IPAddresses:  uniqueSorted(reIPv4.FindAllString(text, -1)),
		Numbers:      uniqueSorted(reNumber.FindAllString(text, -1)),
	}

	for _, raw := range uniqueSorted(reURL.FindAllString(text, -1)) {
		b.URLs = append(b.URLs, parseURL(raw))
	}
	if b.URLs == nil {
		b.URLs = []models.URLEntity{}
	}

	b.EntityCount = b.Count()
	return b
}

func parseURL(raw string) models.URLEntity {
	e := models.URLEntity{
		URL:      raw,
		IsSecure: strings.HasPrefix(strings.ToLower(raw), "https://"),
	}
	if u, err := url.Parse(raw); err == nil {
		e.Domain = strings.ToLower(u.Hostname())
	}
	return e
}

// EmptyEntities returns a bundle with every list present and empty.
func EmptyEntities() models.EntityBundle {
	return models.EntityBundle{
		Emails:       []string{},
		URLs:         []models.URLEntity{},
		PhoneNumbers: []string{},
		Dates:        []string{},
		IPAddresses:  []string{},
		Numbers:      []string{},
	}
}

// uniqueSorted deduplicates values and returns them in lexicographic order.
func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func trimAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}
