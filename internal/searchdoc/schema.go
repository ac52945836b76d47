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

package searchdoc

import (
	"time"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// FieldType is the declared index type of a document field.
type FieldType string

const (
	TypeString   FieldType = "Edm.String"
	TypeStrings  FieldType = "Collection(Edm.String)"
	TypeInt      FieldType = "Edm.Int32"
	TypeInt64    FieldType = "Edm.Int64"
	TypeDouble   FieldType = "Edm.Double"
	TypeBool     FieldType = "Edm.Boolean"
	TypeDateTime FieldType = "Edm.DateTimeOffset"
)

// Field describes one column of the search index.
type Field struct {
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Key        bool      `json:"key,omitempty"`
	Searchable bool      `json:"searchable,omitempty"`
	Filterable bool      `json:"filterable,omitempty"`
	Sortable   bool      `json:"sortable,omitempty"`
}

// Length guard for string fields.
const (
	MaxFieldLength   = 32766
	TruncatedLength  = 32760
	TruncationSuffix = "..."
	TruncatedSuffix  = "_Truncated"
)

var fields = []Field{
	{Name: "id", Type: TypeString, Key: true, Filterable: true},
	{Name: "documentType", Type: TypeString, Filterable: true},
	{Name: "parentEmailId", Type: TypeString, Filterable: true},
	{Name: "messageId", Type: TypeString, Filterable: true},
	{Name: "fileName", Type: TypeString, Filterable: true},
	{Name: "subject", Type: TypeString, Searchable: true, Sortable: true},
	{Name: "senderName", Type: TypeString, Searchable: true, Filterable: true},
	{Name: "senderEmail", Type: TypeString, Searchable: true, Filterable: true},
	{Name: "toRecipients", Type: TypeStrings, Searchable: true, Filterable: true},
	{Name: "ccRecipients", Type: TypeStrings, Searchable: true, Filterable: true},
	{Name: "bccRecipients", Type: TypeStrings, Searchable: true, Filterable: true},
	{Name: "sentDate", Type: TypeDateTime, Filterable: true, Sortable: true},
	{Name: "receivedDate", Type: TypeDateTime, Filterable: true, Sortable: true},
	{Name: "size", Type: TypeInt64, Filterable: true, Sortable: true},
	{Name: "importance", Type: TypeString, Filterable: true},
	{Name: "hasAttachments", Type: TypeBool, Filterable: true},
	{Name: "attachmentCount", Type: TypeInt, Filterable: true},
	{Name: "attachmentNames", Type: TypeStrings, Searchable: true},
	{Name: "allText", Type: TypeString, Searchable: true},
	{Name: "chunkContent", Type: TypeString, Searchable: true},
	{Name: "chunkNumber", Type: TypeInt, Filterable: true, Sortable: true},
	{Name: "totalChunks", Type: TypeInt, Filterable: true},
	{Name: "chunkStartPosition", Type: TypeInt},
	{Name: "chunkEndPosition", Type: TypeInt},
	{Name: "chunkLength", Type: TypeInt},
	{Name: "chunkWordCount", Type: TypeInt},
	{Name: "isFirstChunk", Type: TypeBool, Filterable: true},
	{Name: "isLastChunk", Type: TypeBool, Filterable: true},
	{Name: "searchKeywords", Type: TypeStrings, Searchable: true, Filterable: true},
	{Name: "qualityScore", Type: TypeDouble, Filterable: true, Sortable: true},
	{Name: "wordCount", Type: TypeInt, Filterable: true},
	{Name: "hasMeaningfulContent", Type: TypeBool, Filterable: true},
	{Name: "reductionRatio", Type: TypeDouble},
	{Name: "entityCount", Type: TypeInt, Filterable: true},
	{Name: "emailAddresses", Type: TypeStrings, Searchable: true, Filterable: true},
	{Name: "urls", Type: TypeStrings, Searchable: true},
	{Name: "urlDomains", Type: TypeStrings, Filterable: true},
	{Name: "phoneNumbers", Type: TypeStrings, Searchable: true},
	{Name: "dates", Type: TypeStrings, Searchable: true},
	{Name: "processedDate", Type: TypeDateTime, Filterable: true, Sortable: true},
}

var fieldTypes = func() map[string]FieldType {
	m := make(map[string]FieldType, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Type
	}
	return m
}()

// Schema returns the index field table, including the boolean truncation
// flag paired with every string field.
func Schema() []Field {
	out := make([]Field, 0, len(fields)*2)
	out = append(out, fields...)
	for _, f := range fields {
		if f.Type == TypeString && !f.Key {
			out = append(out, Field{Name: f.Name + TruncatedSuffix, Type: TypeBool, Filterable: true})
		}
	}
	return out
}

// Coerce converts v to the Go value used for declared type t. Values that
// cannot be converted become 0 or false; empty dates become nil.
func Coerce(v any, t FieldType) any {
	switch t {
	case TypeInt:
		n, err := cast.ToIntE(v)
		if err != nil {
			return 0
		}
		return n
	case TypeInt64:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return int64(0)
		}
		return n
	case TypeDouble:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return 0.0
		}
		return f
	case TypeBool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return false
		}
		return b
	case TypeDateTime:
		ts, err := cast.ToTimeE(v)
		if err != nil || ts.IsZero() {
			return nil
		}
		return ts.UTC().Format(time.RFC3339)
	case TypeStrings:
		ss, err := cast.ToStringSliceE(v)
		if err != nil || ss == nil {
			return []string{}
		}
		return ss
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return ""
		}
		return s
	}
}

// guard truncates a string longer than MaxFieldLength characters and
// reports whether it did.
func guard(s string) (string, bool) {
	if utf8.RuneCountInString(s) <= MaxFieldLength {
		return s, false
	}
	r := []rune(s)
	return string(r[:TruncatedLength]) + TruncationSuffix, true
}

// finalize keeps the schema fields of raw, coerces each to its declared
// type and applies the length guard to strings.
func finalize(raw map[string]any) map[string]any {
	doc := make(map[string]any, len(raw)+2)
	for name, v := range raw {
		t, ok := fieldTypes[name]
		if !ok {
			continue
		}
		cv := Coerce(v, t)
		if cv == nil {
			continue
		}
		if s, isString := cv.(string); isString {
			if g, truncated := guard(s); truncated {
				cv = g
				doc[name+TruncatedSuffix] = true
			}
		}
		doc[name] = cv
	}
	return doc
}
