// Copyright (c) 2026 John Earle
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://github.com/yourusername/bcem/blob/main/LICENSE
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
	"time"

	"github.com/bcem/ragprep/internal/models"
)

const messageSelect = "id,internetMessageId,subject,from,toRecipients,ccRecipients,bccRecipients," +
	"body,sentDateTime,receivedDateTime,importance,hasAttachments"

// ListMessageIDs returns the IDs of the user's messages received since the
// given time, newest first.
func (c *Client) ListMessageIDs(ctx context.Context, userID string, since time.Time) ([]string, error) {
	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339)))
	params.Set("$select", "id")
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$top", "50")

	firstURL := fmt.Sprintf("%s/users/%s/messages?%s", c.baseURL, url.PathEscape(userID), params.Encode())
	headers := map[string]string{"Prefer": "odata.maxpagesize=50"}

	var ids []string
	pages, err := c.paginate(ctx, firstURL, headers, func(raw json.RawMessage) error {
		var stubs []struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &stubs); err != nil {
			return fmt.Errorf("decode message list: %w", err)
		}
		for _, s := range stubs {
			ids = append(ids, s.ID)
		}
		return nil
	})
	if err != nil {
		return ids, fmt.Errorf("list messages for %s: %w", userID, err)
	}

	slog.Debug("message list complete", "user", userID, "messages", len(ids), "pages", pages)
	return ids, nil
}

// FetchMessage retrieves one message with its attachment names. It returns
// nil, nil when the message no longer exists.
func (c *Client) FetchMessage(ctx context.Context, userID, messageID string) (*models.EmailRecord, error) {
	params := url.Values{}
	params.Set("$select", messageSelect)
	params.Set("$expand", "attachments($select=name,size)")

	msgURL := fmt.Sprintf("%s/users/%s/messages/%s?%s",
		c.baseURL, url.PathEscape(userID), url.PathEscape(messageID), params.Encode())

	var msg graphMessage
	if err := c.getJSON(ctx, msgURL, nil, &msg); err != nil {
		if IsNotFound(err) {
			slog.Warn("message not found (may have been deleted)",
				"user_id", userID,
				"message_id", messageID,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}

	return msg.toRecord(), nil
}
