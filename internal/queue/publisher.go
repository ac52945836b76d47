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

// Package queue publishes search documents to Redis as Celery-compatible
// tasks. An external indexing worker consumes the queue and uploads the
// documents to the search service.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/ragprep/internal/models"
)

// IndexTaskName is the task the indexing worker registers.
const IndexTaskName = "indexer.tasks.index_documents"

// Publisher sends document batches to Redis in Celery task format.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// celeryTask represents a Celery-compatible task message.
type celeryTask struct {
	ID      string         `json:"id"`
	Task    string         `json:"task"`
	Args    []any          `json:"args"`
	Kwargs  map[string]any `json:"kwargs"`
	Retries int            `json:"retries"`
	ETA     *string        `json:"eta"`
}

// celeryMessage wraps a task for Redis transport.
type celeryMessage struct {
	Body            string         `json:"body"`
	ContentEncoding string         `json:"content-encoding"`
	ContentType     string         `json:"content-type"`
	Headers         map[string]any `json:"headers"`
	Properties      map[string]any `json:"properties"`
}

// DocumentBatch is the payload of one index task: every document built for
// a single email.
type DocumentBatch struct {
	SourceID  string                  `json:"sourceId"`
	Documents []models.SearchDocument `json:"documents"`
}

// Publish serialises the documents of one email and pushes them as a single
// Celery task. Emails without documents are not published.
func (p *Publisher) Publish(ctx context.Context, email *models.EmailRecord, docs []models.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	msgJSON, taskID, err := p.encode(DocumentBatch{SourceID: email.SourceID(), Documents: docs})
	if err != nil {
		return err
	}

	// Celery uses LPUSH to the queue
	if err := p.rdb.LPush(ctx, p.queueName, msgJSON).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published documents to queue",
		"task_id", taskID,
		"source", email.SourceID(),
		"documents", len(docs),
		"queue", p.queueName,
	)

	return nil
}

// encode builds the Celery envelope for batch and returns it with its task ID.
func (p *Publisher) encode(batch DocumentBatch) (string, string, error) {
	batchJSON, err := json.Marshal(batch)
	if err != nil {
		return "", "", fmt.Errorf("marshal document batch: %w", err)
	}

	taskID := uuid.New().String()

	task := celeryTask{
		ID:     taskID,
		Task:   IndexTaskName,
		Args:   []any{string(batchJSON)},
		Kwargs: map[string]any{},
	}

	taskBody, err := json.Marshal(task)
	if err != nil {
		return "", "", fmt.Errorf("marshal celery task: %w", err)
	}

	msg := celeryMessage{
		Body:            string(taskBody),
		ContentEncoding: "utf-8",
		ContentType:     "application/json",
		Headers: map[string]any{
			"lang":    "py",
			"task":    IndexTaskName,
			"id":      taskID,
			"retries": 0,
		},
		Properties: map[string]any{
			"correlation_id": taskID,
			"delivery_mode":  2,
			"delivery_tag":   taskID,
			"body_encoding":  "utf-8",
			"exchange":       p.queueName,
			"routing_key":    p.queueName,
			"delivery_info": map[string]string{
				"exchange":    p.queueName,
				"routing_key": p.queueName,
			},
		},
	}

	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", "", fmt.Errorf("marshal celery message: %w", err)
	}
	return string(msgJSON), taskID, nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
