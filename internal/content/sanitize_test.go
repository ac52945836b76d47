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
	"errors"
	"strings"
	"testing"
)

// TestSanitize_RemovesActiveContent verifies that comments, scripts and the
// other blocked elements disappear together with their content.
func TestSanitize_RemovesActiveContent(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    string
		notWant []string
	}{
		{
			name:    "comment",
			html:    "<p>a<!-- hidden\nnote -->b</p>",
			want:    "<p>ab</p>",
			notWant: []string{"hidden"},
		},
		{
			name:    "script with nested markup",
			html:    `<div>x<script type="text/javascript">if (a < b) { document.write("<b>y</b>") }</script>z</div>`,
			want:    "<div>xz</div>",
			notWant: []string{"document.write"},
		},
		{
			name: "style and form",
			html: "<style>p{color:red}</style><p>keep</p><form action=\"/x\"><input name=q></form>",
			want: "<p>keep</p>",
		},
		{
			name: "multiple scripts are matched non-greedily",
			html: "<script>a</script>keep<SCRIPT>b</SCRIPT>",
			want: "keep",
		},
		{
			name: "void embed",
			html: `<p>a<embed src="movie.swf">b</p>`,
			want: "<p>ab</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Sanitize(tt.html)
			if res.Degraded {
				t.Fatalf("unexpected degraded result: %v", res.Err)
			}
			if res.Value != tt.want {
				t.Errorf("Sanitize() = %q, want %q", res.Value, tt.want)
			}
			for _, nw := range tt.notWant {
				if strings.Contains(res.Value, nw) {
					t.Errorf("output %q still contains %q", res.Value, nw)
				}
			}
		})
	}
}

// TestSanitize_TrackingPixels verifies 1x1 images go regardless of attribute
// order while ordinary images stay.
func TestSanitize_TrackingPixels(t *testing.T) {
	tests := []struct {
		html string
		want string
	}{
		{`<img width="1" height="1" src="https://t.example.com/o.gif">`, ""},
		{`<img src="x.gif" height='1' alt="" width='1'/>`, ""},
		{`<IMG HEIGHT=1 WIDTH=1 SRC=x>`, ""},
		{`<img src="logo.png" width="120" height="40">`, `<img src="logo.png" width="120" height="40">`},
		{`<img src="a.png" width="1" height="300">`, `<img src="a.png" width="1" height="300">`},
		{`<img style="width:1px;height:1px" src="p.gif">`, ""},
		{`<img style="max-width:1px;height:1px" src="b.png">`, `<img style="max-width:1px;height:1px" src="b.png">`},
		{`<img style="width:1px;line-height:1px" src="c.png">`, `<img style="width:1px;line-height:1px" src="c.png">`},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.html).Value; got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.html, got, tt.want)
		}
	}
}

// TestSanitize_EventHandlers verifies inline on* attributes are dropped.
func TestSanitize_EventHandlers(t *testing.T) {
	in := `<a href="https://example.com" onclick="steal()" onMouseOver='x()'>link</a><body onload=init()>`
	want := `<a href="https://example.com">link</a><body>`

	if got := Sanitize(in).Value; got != want {
		t.Errorf("Sanitize() = %q, want %q", got, want)
	}
}

// TestSanitize_TrackingParams verifies utm_* parameters are removed while
// the rest of the query string survives.
func TestSanitize_TrackingParams(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://x.io/p?utm_source=mail", "https://x.io/p"},
		{"https://x.io/p?utm_source=mail&id=7", "https://x.io/p?id=7"},
		{"https://x.io/p?id=7&utm_medium=email", "https://x.io/p?id=7"},
		{"https://x.io/p?id=7&utm_medium=email&page=2", "https://x.io/p?id=7&page=2"},
		{"https://x.io/p?utm_source=a&utm_medium=b&utm_campaign=c", "https://x.io/p"},
		{`<a href="https://x.io/p?a=1&amp;utm_source=n&amp;b=2">`, `<a href="https://x.io/p?a=1&amp;b=2">`},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in).Value; got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestToPlainText_RoundTrip verifies a paragraph with a tracking pixel.
func TestToPlainText_RoundTrip(t *testing.T) {
	in := `<p>Hi <b>Bob</b></p><br><img width="1" height="1" src="x">`

	res := ToPlainText(in)
	if res.Degraded {
		t.Fatalf("unexpected degraded result: %v", res.Err)
	}
	if res.Value != "Hi Bob" {
		t.Errorf("ToPlainText() = %q, want %q", res.Value, "Hi Bob")
	}
}

// TestToPlainText_Structure verifies block mapping, bullets and entity decoding.
func TestToPlainText_Structure(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraphs",
			in:   "<h1>Title</h1><p>First   para</p><div>Second</div>",
			want: "Title\n\nFirst para\n\nSecond",
		},
		{
			name: "list",
			in:   "<ul><li>one</li><li>two</li></ul>",
			want: "• one\n• two",
		},
		{
			name: "line breaks",
			in:   "a<br>b<br/>c",
			want: "a\nb\nc",
		},
		{
			name: "entities",
			in:   "Tom &amp; Jerry &lt;3 &quot;cheese&quot; &#39;n&#39;&nbsp;crackers &gt;",
			want: `Tom & Jerry <3 "cheese" 'n' crackers >`,
		},
		{
			name: "entities decode once",
			in:   "&amp;lt;",
			want: "&lt;",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToPlainText(tt.in).Value; got != tt.want {
				t.Errorf("ToPlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestSanitize_OversizedInputFailsOpen verifies that the fallback is the
// untouched input.
func TestSanitize_OversizedInputFailsOpen(t *testing.T) {
	in := "<script>x</script>" + strings.Repeat("a", MaxInputLength)

	res := Sanitize(in)
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.Value != in {
		t.Error("degraded result should carry the input unchanged")
	}
	if res.Err == nil {
		t.Error("degraded result should carry a diagnostic")
	}
}

// TestGuard_RecoversPanic verifies a panicking stage degrades instead of
// propagating.
func TestGuard_RecoversPanic(t *testing.T) {
	res := guard("test-stage", "fallback", func() (string, error) {
		panic("boom")
	})

	if !res.Degraded || res.Value != "fallback" {
		t.Errorf("got %+v, want degraded fallback", res)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "test-stage") {
		t.Errorf("error %v should name the stage", res.Err)
	}

	res = guard("test-stage", "fallback", func() (string, error) {
		return "", errors.New("bad input")
	})
	if !res.Degraded || res.Value != "fallback" {
		t.Errorf("got %+v, want degraded fallback", res)
	}
}
