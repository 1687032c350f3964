package eventstore

import (
	"encoding/json"
	"time"
)

// BuildStartedMeta describes the inputs of a build.
type BuildStartedMeta struct {
	Source  string `json:"source"`
	Output  string `json:"output"`
	Trigger string `json:"trigger,omitempty"` // "cli", "watch", "schedule"
}

// BuildCompletedMeta describes the result of a successful build.
type BuildCompletedMeta struct {
	DurationMS  int64  `json:"duration_ms"`
	Scopes      int    `json:"scopes"`
	Pages       int    `json:"pages"`
	Files       int    `json:"files"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// BuildFailedMeta describes why a build stopped.
type BuildFailedMeta struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"` // "failed" or "cancelled"
	Category   string `json:"category,omitempty"`
	Message    string `json:"message"`
	DurationMS int64  `json:"duration_ms"`
}

func newEvent(buildID, eventType string, payload any) (*BaseEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, wrap(ErrMarshalPayloadFailed, err)
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   raw,
	}, nil
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, meta BuildStartedMeta) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildStarted, meta)
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID string, meta BuildCompletedMeta) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildCompleted, meta)
}

// NewBuildFailed creates a BuildFailed event.
func NewBuildFailed(buildID string, meta BuildFailedMeta) (*BaseEvent, error) {
	return newEvent(buildID, TypeBuildFailed, meta)
}
