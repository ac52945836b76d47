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

package eml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bcem/ragprep/internal/models"
)

const sampleEML = `From: Alice Jones <alice@corp.com>
To: Bob <bob@corp.com>, carol@corp.com
Cc: dave@corp.com
Subject: Quarterly numbers
Date: Mon, 02 Mar 2026 09:30:00 +0000
Message-ID: <abc123@corp.com>
Received: from mx.corp.com by mail.corp.com; Mon, 02 Mar 2026 09:30:05 +0000
Importance: High
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="alt"

--alt
Content-Type: text/plain; charset=utf-8

Numbers attached.
--alt
Content-Type: text/html; charset=utf-8

<p>Numbers attached.</p>
--alt--
--outer
Content-Type: application/pdf
Content-Disposition: attachment; filename="q1.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--outer--
`

// TestParseEML verifies headers, bodies and attachments are mapped onto
// the record.
func TestParseEML(t *testing.T) {
	rec, err := ParseEML(strings.NewReader(sampleEML), "q1.eml")
	if err != nil {
		t.Fatalf("ParseEML failed: %v", err)
	}

	if rec.FileName != "q1.eml" || rec.MessageID != "abc123@corp.com" {
		t.Errorf("ids = %q %q", rec.FileName, rec.MessageID)
	}
	if rec.Subject != "Quarterly numbers" {
		t.Errorf("Subject = %q", rec.Subject)
	}
	if rec.Sender.Name != "Alice Jones" || rec.Sender.Address != "alice@corp.com" {
		t.Errorf("Sender = %+v", rec.Sender)
	}
	if len(rec.Recipients.To) != 2 || len(rec.Recipients.CC) != 1 || len(rec.Recipients.BCC) != 0 {
		t.Errorf("Recipients = %+v", rec.Recipients)
	}
	if strings.TrimSpace(rec.Body) != "Numbers attached." {
		t.Errorf("Body = %q", rec.Body)
	}
	if !strings.Contains(rec.HTMLBody, "<p>Numbers attached.</p>") {
		t.Errorf("HTMLBody = %q", rec.HTMLBody)
	}
	if !rec.SentAt.Equal(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("SentAt = %v", rec.SentAt)
	}
	if !rec.ReceivedAt.Equal(time.Date(2026, 3, 2, 9, 30, 5, 0, time.UTC)) {
		t.Errorf("ReceivedAt = %v", rec.ReceivedAt)
	}
	if rec.Importance != models.ImportanceHigh {
		t.Errorf("Importance = %q", rec.Importance)
	}
	if len(rec.Attachments) != 1 || rec.Attachments[0].FileName != "q1.pdf" || rec.Attachments[0].Size != 9 {
		t.Errorf("Attachments = %+v", rec.Attachments)
	}
	if rec.Size != int64(len(sampleEML)) {
		t.Errorf("Size = %d", rec.Size)
	}
}

// TestParseEML_PlainMessage verifies a minimal single-part message.
func TestParseEML_PlainMessage(t *testing.T) {
	msg := "From: ops@corp.com\r\nSubject: ping\r\nX-Priority: 5 (Lowest)\r\n\r\nall good\r\n"

	rec, err := ParseEML(strings.NewReader(msg), "ping.eml")
	if err != nil {
		t.Fatalf("ParseEML failed: %v", err)
	}
	if strings.TrimSpace(rec.Body) != "all good" || rec.HTMLBody != "" {
		t.Errorf("Body=%q HTMLBody=%q", rec.Body, rec.HTMLBody)
	}
	if rec.Importance != models.ImportanceLow {
		t.Errorf("Importance = %q", rec.Importance)
	}
	if !rec.SentAt.IsZero() || !rec.ReceivedAt.IsZero() {
		t.Errorf("dates should be zero without headers: %v %v", rec.SentAt, rec.ReceivedAt)
	}
}

// TestReadJSON verifies single records and arrays.
func TestReadJSON(t *testing.T) {
	single := `{"subject": "One", "body": "first", "sender": {"name": "A", "email": "a@x.com"}, "importance": "High"}`
	recs, err := ReadJSON(strings.NewReader(single), "one.json")
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if len(recs) != 1 || recs[0].FileName != "one.json" || recs[0].Sender.Address != "a@x.com" {
		t.Errorf("single = %+v", recs)
	}

	array := `[{"subject": "A", "fileName": "kept.msg"}, {"subject": "B"}]`
	recs, err = ReadJSON(strings.NewReader(array), "batch.json")
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if len(recs) != 2 || recs[0].FileName != "kept.msg" || recs[1].FileName != "batch.json#2" {
		t.Errorf("array = %+v %+v", recs[0], recs[1])
	}

	if _, err := ReadJSON(strings.NewReader(`{"subject": `), "bad.json"); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

// TestLoad verifies directory walking, filtering and failure counting.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	files := map[string]string{
		filepath.Join(dir, "q1.eml"):       sampleEML,
		filepath.Join(nested, "dump.json"): `[{"subject": "A"}, {"subject": "B"}]`,
		filepath.Join(dir, "notes.txt"):    "ignored",
		filepath.Join(dir, "broken.json"):  "{",
	}
	for path, body := range files {
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	recs, failed, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("expected 3 records, got %d", len(recs))
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}

	if _, _, err := Load(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing path")
	}
}
