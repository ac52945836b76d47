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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// User is a discovered mailbox user.
type User struct {
	ID                string `json:"id"`
	Mail              string `json:"mail"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Key returns the identifier used in /users/{key} paths.
func (u User) Key() string {
	if u.ID != "" {
		return u.ID
	}
	if u.UserPrincipalName != "" {
		return u.UserPrincipalName
	}
	return u.Mail
}

// ListUsers returns the mailboxes to read.
//
//   - If include is non-empty, returns only those users (no Graph API call).
//   - Otherwise, lists all licensed users with a mailbox.
//   - In both cases, users in exclude are dropped.
func (c *Client) ListUsers(ctx context.Context, include, exclude []string) ([]User, error) {
	excludeSet := make(map[string]bool, len(exclude))
	for _, u := range exclude {
		excludeSet[strings.ToLower(u)] = true
	}

	var users []User

	if len(include) > 0 {
		for _, mail := range include {
			if excludeSet[strings.ToLower(mail)] {
				continue
			}
			// Graph accepts userPrincipalName in place of the GUID
			users = append(users, User{Mail: mail, UserPrincipalName: mail})
		}
		return users, nil
	}

	params := url.Values{}
	params.Set("$filter", "assignedLicenses/$count ne 0")
	params.Set("$count", "true")
	params.Set("$select", "id,mail,displayName,userPrincipalName")
	params.Set("$top", "100")

	firstURL := fmt.Sprintf("%s/users?%s", c.baseURL, params.Encode())
	headers := map[string]string{"ConsistencyLevel": "eventual"} // required for $count

	_, err := c.paginate(ctx, firstURL, headers, func(raw json.RawMessage) error {
		var page []User
		if err := json.Unmarshal(raw, &page); err != nil {
			return fmt.Errorf("decode users: %w", err)
		}
		for _, u := range page {
			if u.Mail == "" || excludeSet[strings.ToLower(u.Mail)] {
				continue
			}
			users = append(users, u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	slog.Info("mailbox discovery complete", "discovered", len(users))
	return users, nil
}
