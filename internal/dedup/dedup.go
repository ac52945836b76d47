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

// Package dedup remembers which emails have already been prepared, using a
// Redis key per content fingerprint with a TTL. Reruns over the same
// mailbox or directory then skip emails that were already indexed.
package dedup

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/ragprep/internal/models"
)

const (
	// DefaultTTL is how long we remember a seen email.
	DefaultTTL = 7 * 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "ragprep:seen:"
)

// Filter tracks which emails have already been processed.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a dedup filter backed by Redis. A zero ttl uses
// DefaultTTL.
func NewFilter(rdb *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Filter{
		rdb: rdb,
		ttl: ttl,
	}
}

// Fingerprint hashes the fields that identify an email's content. Two
// copies of the same message read from different files share a
// fingerprint.
func Fingerprint(email *models.EmailRecord) string {
	d := xxhash.New()
	for _, part := range []string{
		strings.TrimSpace(email.Subject),
		strings.ToLower(email.Sender.Address),
		email.SentAt.UTC().Format(time.RFC3339),
		email.Body,
		email.HTMLBody,
	} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// IsNew claims the email's fingerprint for ttl and reports whether this
// call made the claim. A claimed email that later fails must be released
// with Forget so a rerun picks it up again.
func (f *Filter) IsNew(ctx context.Context, email *models.EmailRecord) (bool, error) {
	key := keyPrefix + Fingerprint(email)

	set, err := f.rdb.SetNX(ctx, key, email.SourceID(), f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}

	return set, nil
}

// Forget releases a claim made by IsNew.
func (f *Filter) Forget(ctx context.Context, email *models.EmailRecord) error {
	if err := f.rdb.Del(ctx, keyPrefix+Fingerprint(email)).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}
