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

// Package eml reads emails from local files: RFC 5322 .eml messages and
// JSON dumps of EmailRecords.
package eml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/bcem/ragprep/internal/models"
)

// Supported file extensions.
const (
	ExtEML  = ".eml"
	ExtJSON = ".json"
)

// ParseEML reads one MIME message. fileName is recorded on the record and
// used as its source ID.
func ParseEML(r io.Reader, fileName string) (*models.EmailRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse MIME message: %w", err)
	}
	for _, perr := range env.Errors {
		slog.Debug("MIME parse warning", "file", fileName, "error", perr.Error())
	}

	rec := &models.EmailRecord{
		MessageID:  strings.Trim(strings.TrimSpace(env.GetHeader("Message-ID")), "<>"),
		FileName:   fileName,
		Subject:    env.GetHeader("Subject"),
		Body:       env.Text,
		HTMLBody:   env.HTML,
		Size:       int64(len(data)),
		Importance: importance(env),
	}

	if from := addressList(env, "From"); len(from) > 0 {
		rec.Sender = from[0]
	}
	rec.Recipients = models.Recipients{
		To:  addressList(env, "To"),
		CC:  addressList(env, "Cc"),
		BCC: addressList(env, "Bcc"),
	}

	if d, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		rec.SentAt = d
	}
	rec.ReceivedAt = receivedAt(env.GetHeader("Received"), rec.SentAt)

	for _, a := range env.Attachments {
		rec.Attachments = append(rec.Attachments, models.Attachment{
			FileName: a.FileName,
			Size:     int64(len(a.Content)),
		})
	}

	return rec, nil
}

// ReadJSON decodes either a single EmailRecord or an array of them.
// Records without a file name get fileName, suffixed with their index for
// arrays.
func ReadJSON(r io.Reader, fileName string) ([]*models.EmailRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read JSON: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var recs []*models.EmailRecord
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, fmt.Errorf("decode email records: %w", err)
		}
		for i, rec := range recs {
			if rec != nil && rec.FileName == "" {
				rec.FileName = fmt.Sprintf("%s#%d", fileName, i+1)
			}
		}
		return recs, nil
	}

	var rec models.EmailRecord
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return nil, fmt.Errorf("decode email record: %w", err)
	}
	if rec.FileName == "" {
		rec.FileName = fileName
	}
	return []*models.EmailRecord{&rec}, nil
}

// ReadFile reads the records stored in one .eml or .json file.
func ReadFile(path string) ([]*models.EmailRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtEML:
		rec, err := ParseEML(f, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []*models.EmailRecord{rec}, nil
	case ExtJSON:
		recs, err := ReadJSON(f, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("%s: unsupported file type", path)
	}
}

// Load reads every supported file under the given paths, descending into
// directories. Unreadable files are logged and counted in failed; only a
// missing path is an error.
func Load(paths ...string) (records []*models.EmailRecord, failed int, err error) {
	for _, root := range paths {
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !supported(path) {
				return nil
			}
			recs, rerr := ReadFile(path)
			if rerr != nil {
				slog.Warn("skipping unreadable email file", "path", path, "error", rerr)
				failed++
				return nil
			}
			records = append(records, recs...)
			return nil
		})
		if walkErr != nil {
			return records, failed, fmt.Errorf("walk %s: %w", root, walkErr)
		}
	}
	return records, failed, nil
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtEML, ExtJSON:
		return true
	}
	return false
}

func addressList(env *enmime.Envelope, header string) []models.EmailAddress {
	list, err := env.AddressList(header)
	if err != nil {
		return []models.EmailAddress{}
	}
	out := make([]models.EmailAddress, 0, len(list))
	for _, a := range list {
		out = append(out, models.EmailAddress{Name: a.Name, Address: a.Address})
	}
	return out
}

func importance(env *enmime.Envelope) models.Importance {
	if v := env.GetHeader("Importance"); v != "" {
		return models.ParseImportance(v)
	}
	return models.ParseImportance(env.GetHeader("X-Priority"))
}

// receivedAt takes the timestamp after the last ';' of the topmost
// Received header, falling back to the sent date.
func receivedAt(received string, fallback time.Time) time.Time {
	if i := strings.LastIndex(received, ";"); i >= 0 {
		if d, err := mail.ParseDate(strings.TrimSpace(received[i+1:])); err == nil {
			return d
		}
	}
	return fallback
}
