// Package events carries fire-and-forget content change notifications over a
// Redis list.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/practice-backend/internal/config"
)

// Action describes what happened to a version chain.
type Action string

const (
	ActionEdited    Action = "edited"
	ActionRetracted Action = "retracted"
)

// ContentChanged is emitted after a content edit commits.
type ContentChanged struct {
	EventID    uuid.UUID `json:"event_id"`
	Kind       string    `json:"kind"`
	Action     Action    `json:"action"`
	OriginalID uuid.UUID `json:"original_id"`
	NodeID     uuid.UUID `json:"node_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher pushes events onto the content events queue.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewPublisher creates a Publisher on the default content events queue.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb, queue: config.WorkerKey.ContentEventsQueue}
}

// Publish enqueues one event. EventID and OccurredAt are filled when zero.
func (p *Publisher) Publish(ctx context.Context, e ContentChanged) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.rdb.RPush(ctx, p.queue, raw).Err()
}
