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

// Package models defines the data structures shared across the preparation
// pipeline: the input email record and everything derived from it.
package models

import (
	"strings"
	"time"
)

// Importance mirrors the Outlook importance flag.
type Importance string

const (
	ImportanceLow    Importance = "Low"
	ImportanceNormal Importance = "Normal"
	ImportanceHigh   Importance = "High"
)

// ParseImportance maps header and Graph values ("high", "1", "5 (Lowest)")
// onto an Importance. Unknown values are Normal.
func ParseImportance(v string) Importance {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case v == "":
		return ImportanceNormal
	case strings.HasPrefix(v, "high"), strings.HasPrefix(v, "urgent"),
		strings.HasPrefix(v, "1"), strings.HasPrefix(v, "2"):
		return ImportanceHigh
	case strings.HasPrefix(v, "low"), strings.HasPrefix(v, "non-urgent"),
		strings.HasPrefix(v, "4"), strings.HasPrefix(v, "5"):
		return ImportanceLow
	default:
		return ImportanceNormal
	}
}

// EmailAddress represents a sender or recipient with an address and optional name.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"email"`
}

// String renders the address as `Name <address>`, or just the address.
func (a EmailAddress) String() string {
	if a.Name == "" || a.Name == a.Address {
		return a.Address
	}
	if a.Address == "" {
		return a.Name
	}
	return a.Name + " <" + a.Address + ">"
}

// Recipients groups the three recipient lists of a message.
type Recipients struct {
	To  []EmailAddress `json:"to"`
	CC  []EmailAddress `json:"cc"`
	BCC []EmailAddress `json:"bcc"`
}

// Attachment represents a file attached to an email.
type Attachment struct {
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// EmailRecord is a fully read email handed to the pipeline by a reader
// (eml file, JSON dump, Graph API). It is not modified after construction.
type EmailRecord struct {
	MessageID   string       `json:"messageId,omitempty"`
	FileName    string       `json:"fileName"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	HTMLBody    string       `json:"htmlBody,omitempty"`
	Sender      EmailAddress `json:"sender"`
	Recipients  Recipients   `json:"recipients"`
	SentAt      time.Time    `json:"sentAt"`
	ReceivedAt  time.Time    `json:"receivedAt"`
	Size        int64        `json:"size"`
	Importance  Importance   `json:"importance"`
	Attachments []Attachment `json:"attachments"`
}

// SourceID identifies the record for chunk IDs and log lines: the file
// name when present, otherwise the message ID.
func (e *EmailRecord) SourceID() string {
	if e.FileName != "" {
		return e.FileName
	}
	return e.MessageID
}

// HasContent reports whether the record carries anything to index.
func (e *EmailRecord) HasContent() bool {
	return strings.TrimSpace(e.Subject) != "" ||
		strings.TrimSpace(e.Body) != "" ||
		strings.TrimSpace(e.HTMLBody) != ""
}
