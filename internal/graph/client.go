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

// Package graph reads mail from the Microsoft Graph API: it discovers
// mailbox users, pages through a mailbox's messages and converts each
// message into an EmailRecord.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// StatusError is returned for non-200 Graph responses.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("graph API returned HTTP %d for %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether err is a Graph 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client calls the Graph API with an authenticated HTTP client, usually
// one built from OAuth2 client credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageDelay  time.Duration // delay between pages to avoid throttling
}

// NewClient creates a Graph client. An empty baseURL uses DefaultBaseURL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		pageDelay:  500 * time.Millisecond,
	}
}

// SetPageDelay changes the pause between list pages.
func (c *Client) SetPageDelay(d time.Duration) {
	c.pageDelay = d
}

// getJSON fetches url and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Debug("graph error response", "status", resp.StatusCode, "body", string(body))
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

// paginate follows @odata.nextLink from firstURL, calling visit for every
// page body. It waits pageDelay between pages.
func (c *Client) paginate(ctx context.Context, firstURL string, headers map[string]string, visit func(raw json.RawMessage) error) (int, error) {
	pages := 0
	for next := firstURL; next != ""; {
		if pages > 0 && c.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return pages, ctx.Err()
			case <-time.After(c.pageDelay):
			}
		}

		var page struct {
			Value    json.RawMessage `json:"value"`
			NextLink string          `json:"@odata.nextLink"`
		}
		if err := c.getJSON(ctx, next, headers, &page); err != nil {
			return pages, fmt.Errorf("fetch page %d: %w", pages, err)
		}
		pages++

		if len(page.Value) > 0 {
			if err := visit(page.Value); err != nil {
				return pages, err
			}
		}
		next = page.NextLink
	}
	return pages, nil
}
