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

package graph

import (
	"strings"
	"time"

	"github.com/bcem/ragprep/internal/models"
)

type graphAddress struct {
	EmailAddress struct {
		Address string `json:"address"`
		Name    string `json:"name"`
	} `json:"emailAddress"`
}

func (a graphAddress) toModel() models.EmailAddress {
	return models.EmailAddress{Name: a.EmailAddress.Name, Address: a.EmailAddress.Address}
}

// graphMessage represents the relevant fields from a Graph API message response.
type graphMessage struct {
	ID                string         `json:"id"`
	InternetMessageID string         `json:"internetMessageId"`
	Subject           string         `json:"subject"`
	From              graphAddress   `json:"from"`
	ToRecipients      []graphAddress `json:"toRecipients"`
	CCRecipients      []graphAddress `json:"ccRecipients"`
	BCCRecipients     []graphAddress `json:"bccRecipients"`
	Body              struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	SentDateTime     time.Time `json:"sentDateTime"`
	ReceivedDateTime time.Time `json:"receivedDateTime"`
	Importance       string    `json:"importance"`
	HasAttachments   bool      `json:"hasAttachments"`
	Attachments      []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"attachments"`
}

// toRecord converts a Graph message into an EmailRecord. Size is the body
// length plus attachment sizes; Graph does not expose the MIME size.
func (m *graphMessage) toRecord() *models.EmailRecord {
	rec := &models.EmailRecord{
		MessageID:  m.ID,
		Subject:    m.Subject,
		Sender:     m.From.toModel(),
		Recipients: models.Recipients{To: addresses(m.ToRecipients), CC: addresses(m.CCRecipients), BCC: addresses(m.BCCRecipients)},
		SentAt:     m.SentDateTime,
		ReceivedAt: m.ReceivedDateTime,
		Importance: models.ParseImportance(m.Importance),
		Size:       int64(len(m.Body.Content)),
	}

	if strings.EqualFold(m.Body.ContentType, "html") {
		rec.HTMLBody = m.Body.Content
	} else {
		rec.Body = m.Body.Content
	}

	for _, a := range m.Attachments {
		rec.Attachments = append(rec.Attachments, models.Attachment{FileName: a.Name, Size: a.Size})
		rec.Size += a.Size
	}
	return rec
}

func addresses(in []graphAddress) []models.EmailAddress {
	out := make([]models.EmailAddress, 0, len(in))
	for _, a := range in {
		out = append(out, a.toModel())
	}
	return out
}
