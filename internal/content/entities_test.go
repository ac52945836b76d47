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
	"reflect"
	"strings"
	"testing"

	"github.com/bcem/ragprep/internal/models"
)

// TestExtractEntities_Dedup verifies repeated addresses collapse to one and
// that extraction is stable across runs.
func TestExtractEntities_Dedup(t *testing.T) {
	text := "ping bob@corp.io, bob@corp.io; bob@corp.io bob@corp.io and bob@corp.io"

	first := ExtractEntities(text).Value
	second := ExtractEntities(text).Value

	if len(first.Emails) != 1 || first.Emails[0] != "bob@corp.io" {
		t.Errorf("Emails = %v, want [bob@corp.io]", first.Emails)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not deterministic: %+v vs %+v", first, second)
	}
}

// TestExtractEntities_Categories verifies each category pattern.
func TestExtractEntities_Categories(t *testing.T) {
	tests := []struct {
		name string
		text string
		get  func(b models.EntityBundle) []string
		want []string
	}{
		{
			name: "phones",
			text: "Call 555-123-4567 or (555) 987-6543 or +44 20 7946 0958 or 555 123 4567.",
			get:  func(b models.EntityBundle) []string { return b.PhoneNumbers },
			want: []string{"(555) 987-6543", "+44 20 7946 0958", "555 123 4567", "555-123-4567"},
		},
		{
			name: "dates",
			text: "Due 12/25/2024, kickoff 2024-01-15, review March 5, 2025 and launch 5 March 2025.",
			get:  func(b models.EntityBundle) []string { return b.Dates },
			want: []string{"12/25/2024", "2024-01-15", "5 March 2025", "March 5, 2025"},
		},
		{
			name: "ip addresses",
			text: "Hosts 10.0.0.1, 192.168.1.254 and 10.0.0.1 again; bogus 256.1.1.1 and 1.2.3.999 here",
			get:  func(b models.EntityBundle) []string { return b.IPAddresses },
			want: []string{"10.0.0.1", "192.168.1.254"},
		},
		{
			name: "numbers",
			text: "Budget $1,250.00 up 15% over 1,000,000 units at 3.75 each, $99 total",
			get:  func(b models.EntityBundle) []string { return b.Numbers },
			want: []string{"$1,250.00", "$99", "1,000,000", "15%", "3.75"},
		},
		{
			name: "emails sorted",
			text: "cc zed@b.org and amy@a.com and x@y",
			get:  func(b models.EntityBundle) []string { return b.Emails },
			want: []string{"amy@a.com", "zed@b.org"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ExtractEntities(tt.text)
			if res.Degraded {
				t.Fatalf("unexpected degraded result: %v", res.Err)
			}
			if got := tt.get(res.Value); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestExtractEntities_URLs verifies URL parsing into domain and scheme.
func TestExtractEntities_URLs(t *testing.T) {
	text := "See https://www.Example.com/path?x=1 and http://foo.org/a twice: https://www.Example.com/path?x=1"

	b := ExtractEntities(text).Value
	if len(b.URLs) != 2 {
		t.Fatalf("expected 2 URLs, got %d: %+v", len(b.URLs), b.URLs)
	}

	if b.URLs[0].URL != "http://foo.org/a" || b.URLs[0].Domain != "foo.org" || b.URLs[0].IsSecure {
		t.Errorf("URLs[0] = %+v", b.URLs[0])
	}
	if b.URLs[1].URL != "https://www.Example.com/path?x=1" || b.URLs[1].Domain != "www.example.com" || !b.URLs[1].IsSecure {
		t.Errorf("URLs[1] = %+v", b.URLs[1])
	}
}

// TestExtractEntities_Count verifies entityCount sums every category.
func TestExtractEntities_Count(t *testing.T) {
	text := "Mail a@b.com from 10.1.1.1 on 2024-02-03 about https://x.io costing $5.00"

	b := ExtractEntities(text).Value
	if b.EntityCount != b.Count() {
		t.Errorf("EntityCount = %d, Count() = %d", b.EntityCount, b.Count())
	}
	if b.EntityCount < 5 {
		t.Errorf("EntityCount = %d, want at least 5", b.EntityCount)
	}
}

// TestExtractEntities_Empty verifies blank input yields an empty bundle.
func TestExtractEntities_Empty(t *testing.T) {
	for _, in := range []string{"", "   \n\t"} {
		res := ExtractEntities(in)
		if res.Degraded {
			t.Fatalf("unexpected degraded result: %v", res.Err)
		}
		b := res.Value
		if b.EntityCount != 0 || b.Error != "" {
			t.Errorf("ExtractEntities(%q) = %+v, want empty", in, b)
		}
		if b.Emails == nil || b.URLs == nil {
			t.Error("empty bundle should carry empty, non-nil lists")
		}
	}
}

// TestExtractEntities_FailureAnnotated verifies a failed extraction carries
// its diagnostic in the bundle.
func TestExtractEntities_FailureAnnotated(t *testing.T) {
	res := ExtractEntities(strings.Repeat("a", MaxInputLength+1))

	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.Value.EntityCount != 0 || res.Value.Error == "" {
		t.Errorf("bundle = %+v, want empty with error", res.Value)
	}
}
