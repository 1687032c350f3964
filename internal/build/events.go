package build

import (
	"context"

	"git.home.luguber.info/inful/scopebuild/internal/eventstore"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
)

// EventEmitter records build lifecycle events.
type EventEmitter interface {
	EmitBuildStarted(ctx context.Context, buildID string, meta eventstore.BuildStartedMeta) error
	EmitBuildCompleted(ctx context.Context, buildID string, meta eventstore.BuildCompletedMeta) error
	EmitBuildFailed(ctx context.Context, buildID string, meta eventstore.BuildFailedMeta) error
}

type noopEmitter struct{}

func (noopEmitter) EmitBuildStarted(context.Context, string, eventstore.BuildStartedMeta) error {
	return nil
}

func (noopEmitter) EmitBuildCompleted(context.Context, string, eventstore.BuildCompletedMeta) error {
	return nil
}

func (noopEmitter) EmitBuildFailed(context.Context, string, eventstore.BuildFailedMeta) error {
	return nil
}

// StoreEmitter appends build events to an event store.
type StoreEmitter struct {
	store eventstore.Store
}

// NewStoreEmitter returns an emitter backed by store.
func NewStoreEmitter(store eventstore.Store) *StoreEmitter {
	return &StoreEmitter{store: store}
}

func (e *StoreEmitter) EmitBuildStarted(ctx context.Context, buildID string, meta eventstore.BuildStartedMeta) error {
	event, err := eventstore.NewBuildStarted(buildID, meta)
	if err != nil {
		return err
	}
	return e.store.Append(ctx, event)
}

func (e *StoreEmitter) EmitBuildCompleted(ctx context.Context, buildID string, meta eventstore.BuildCompletedMeta) error {
	event, err := eventstore.NewBuildCompleted(buildID, meta)
	if err != nil {
		return err
	}
	return e.store.Append(ctx, event)
}

func (e *StoreEmitter) EmitBuildFailed(ctx context.Context, buildID string, meta eventstore.BuildFailedMeta) error {
	event, err := eventstore.NewBuildFailed(buildID, meta)
	if err != nil {
		return err
	}
	return e.store.Append(ctx, event)
}

func (s *DefaultBuildService) emitStarted(ctx context.Context, req BuildRequest, result *BuildResult) {
	err := s.emitter.EmitBuildStarted(ctx, result.BuildID, eventstore.BuildStartedMeta{
		Source:  result.SourcePath,
		Output:  result.OutputPath,
		Trigger: req.Trigger,
	})
	if err != nil {
		observability.WarnContext(ctx, "Failed to record build start", logfields.Error(err))
	}
}

func (s *DefaultBuildService) emitCompleted(ctx context.Context, result *BuildResult) {
	err := s.emitter.EmitBuildCompleted(ctx, result.BuildID, eventstore.BuildCompletedMeta{
		DurationMS:  result.Duration.Milliseconds(),
		Scopes:      result.Scopes,
		Pages:       result.Pages,
		Files:       result.Files,
		Fingerprint: result.Fingerprint,
	})
	if err != nil {
		observability.WarnContext(ctx, "Failed to record build completion", logfields.Error(err))
	}
}

func (s *DefaultBuildService) emitFailed(ctx context.Context, result *BuildResult, buildErr error) {
	meta := eventstore.BuildFailedMeta{
		Stage:      result.FailedStage,
		Status:     eventstore.StatusFailed,
		Message:    buildErr.Error(),
		DurationMS: result.Duration.Milliseconds(),
	}
	if result.Status == BuildStatusCancelled {
		meta.Status = eventstore.StatusCancelled
	}
	if classified, ok := errors.AsClassified(buildErr); ok {
		meta.Category = string(classified.Category())
	}
	// The build context may already be cancelled.
	if err := s.emitter.EmitBuildFailed(context.WithoutCancel(ctx), result.BuildID, meta); err != nil {
		observability.WarnContext(ctx, "Failed to record build failure", logfields.Error(err))
	}
}
