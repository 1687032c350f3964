// Package notify publishes build events to external subscribers.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// EventBuildCompleted is the event name carried by every published build event.
const EventBuildCompleted = "build.completed"

// BuildEvent is the JSON payload published after a build finishes.
type BuildEvent struct {
	Event       string    `json:"event"`
	BuildID     string    `json:"build_id"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	Output      string    `json:"output"`
	Scopes      int       `json:"scopes"`
	Pages       int       `json:"pages"`
	Files       int       `json:"files"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Encode fills in the event name and timestamp when unset and marshals the event.
func (e BuildEvent) Encode() ([]byte, error) {
	if e.Event == "" {
		e.Event = EventBuildCompleted
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "marshal build event").Build()
	}
	return data, nil
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, event BuildEvent) error
	Close() error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BuildEvent) error { return nil }
func (NoopPublisher) Close() error                              { return nil }
