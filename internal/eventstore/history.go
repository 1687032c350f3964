package eventstore

import (
	"context"
	"slices"
	"time"
)

// Build summary statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// BuildSummary is a read model of one build folded from its events.
type BuildSummary struct {
	BuildID     string        `json:"build_id"`
	Status      string        `json:"status"`
	Trigger     string        `json:"trigger,omitempty"`
	Source      string        `json:"source,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Pages       int           `json:"pages"`
	Files       int           `json:"files"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	ErrorStage  string        `json:"error_stage,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Summarize folds events into one summary per build, newest first.
// Events that cannot be decoded are ignored.
func Summarize(events []Event) []*BuildSummary {
	byID := make(map[string]*BuildSummary)
	var order []*BuildSummary

	for _, event := range events {
		id := event.BuildID()
		if id == "" {
			continue
		}
		s, ok := byID[id]
		if !ok {
			s = &BuildSummary{BuildID: id, Status: StatusRunning, StartedAt: event.Timestamp()}
			byID[id] = s
			order = append(order, s)
		}

		switch event.Type() {
		case TypeBuildStarted:
			var meta BuildStartedMeta
			if Decode(event, &meta) == nil {
				s.StartedAt = event.Timestamp()
				s.Trigger = meta.Trigger
				s.Source = meta.Source
			}
		case TypeBuildCompleted:
			var meta BuildCompletedMeta
			if Decode(event, &meta) == nil {
				s.Status = StatusSucceeded
				s.Duration = time.Duration(meta.DurationMS) * time.Millisecond
				s.Pages = meta.Pages
				s.Files = meta.Files
				s.Fingerprint = meta.Fingerprint
				s.complete(event.Timestamp())
			}
		case TypeBuildFailed:
			var meta BuildFailedMeta
			if Decode(event, &meta) == nil {
				s.Status = StatusFailed
				if meta.Status == StatusCancelled {
					s.Status = StatusCancelled
				}
				s.Duration = time.Duration(meta.DurationMS) * time.Millisecond
				s.ErrorStage = meta.Stage
				s.Error = meta.Message
				s.complete(event.Timestamp())
			}
		}
	}

	slices.SortStableFunc(order, func(a, b *BuildSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return order
}

func (s *BuildSummary) complete(at time.Time) {
	s.CompletedAt = &at
}

// Recent returns up to limit summaries of the most recent builds.
// A limit below one returns every build.
func Recent(ctx context.Context, store Store, limit int) ([]*BuildSummary, error) {
	events, err := store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return nil, err
	}
	summaries := Summarize(events)
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}
