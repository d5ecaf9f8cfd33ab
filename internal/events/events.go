// Package events publishes application events (registrations, password
// changes) to a message broker. Publishing is best-effort: a broker
// failure is logged by the caller and never fails the originating request.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Topics the backend publishes to.
const (
	TopicUserRegistered      = "user.registered"
	TopicUserPasswordChanged = "user.password_changed"
)

// UserEvent is the payload published for account-lifecycle events.
type UserEvent struct {
	UserID int       `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend with a stable, typed API.
type Publisher struct {
	backend Backend
}

// NewPublisher constructs a Publisher for the provided backend.
func NewPublisher(backend Backend) *Publisher {
	return &Publisher{backend: backend}
}

// PublishUserEvent sends a UserEvent to the named topic.
func (p *Publisher) PublishUserEvent(ctx context.Context, topic string, event UserEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return p.backend.Publish(ctx, topic, data, map[string]string{"event": topic})
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}
