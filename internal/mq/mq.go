package mq

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Event types published by the services.
const (
	EventUserRegistered = "user.registered"
	EventPostCreated    = "post.created"
	EventPostDeleted    = "post.deleted"
	EventCommentCreated = "comment.created"
)

// Backend defines the broker-agnostic publish operation.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Envelope is the JSON document delivered to subscribers.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// Publisher emits domain events on a backend. A nil Publisher or a Publisher
// without a backend discards events.
type Publisher struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{backend: backend, logger: logger, now: time.Now}
}

// Emit publishes data under eventType. Failures are logged, never returned.
func (p *Publisher) Emit(ctx context.Context, eventType string, data any) {
	if p == nil || p.backend == nil {
		return
	}

	payload, err := json.Marshal(Envelope{Type: eventType, OccurredAt: p.now().UTC(), Data: data})
	if err != nil {
		p.logger.ErrorContext(ctx, "encode event", "type", eventType, "error", err)
		return
	}

	id, err := p.backend.Publish(ctx, eventType, payload, map[string]string{"type": eventType})
	if err != nil {
		p.logger.WarnContext(ctx, "publish event", "type", eventType, "error", err)
		return
	}
	p.logger.DebugContext(ctx, "event published", "type", eventType, "id", id)
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}
