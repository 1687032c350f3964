package build

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/metrics"
	"git.home.luguber.info/inful/scopebuild/internal/notify"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
	"git.home.luguber.info/inful/scopebuild/internal/render"
	"git.home.luguber.info/inful/scopebuild/internal/site"
)

// textfileWriter is implemented by recorders that can export a node-exporter textfile.
type textfileWriter interface {
	WriteTextfile(path string) error
}

// DefaultBuildService is the standard implementation of BuildService.
// Every Run uses a fresh site.BuildContext, so no cache survives between builds.
type DefaultBuildService struct {
	recorder  metrics.Recorder
	emitter   EventEmitter
	publisher notify.Publisher
	version   string
}

// NewBuildService creates a DefaultBuildService that records nothing.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		recorder:  metrics.NoopRecorder{},
		emitter:   noopEmitter{},
		publisher: notify.NoopPublisher{},
		version:   "dev",
	}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithEventEmitter sets where build lifecycle events are recorded.
func (s *DefaultBuildService) WithEventEmitter(e EventEmitter) *DefaultBuildService {
	if e != nil {
		s.emitter = e
	}
	return s
}

// WithPublisher sets the notification publisher.
func (s *DefaultBuildService) WithPublisher(p notify.Publisher) *DefaultBuildService {
	if p != nil {
		s.publisher = p
	}
	return s
}

// WithVersion sets the tool version written to the manifest.
func (s *DefaultBuildService) WithVersion(v string) *DefaultBuildService {
	s.version = v
	return s
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := time.Now()

	result := &BuildResult{
		BuildID:        uuid.NewString(),
		StartTime:      startTime,
		StageDurations: make(map[string]time.Duration),
	}
	ctx = observability.WithBuildID(ctx, result.BuildID)

	if req.Config == nil {
		result.Status = BuildStatusFailed
		finishTiming(result)
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		return result, errors.ConfigError("config required").Build()
	}
	cfg := req.Config

	source, err := filepath.Abs(cfg.Source)
	if err != nil {
		return s.fail(ctx, req, result, StageTree, errors.WrapError(err, errors.CategoryFileSystem, "resolve source directory").Build())
	}
	output, err := filepath.Abs(cfg.Output.Directory)
	if err != nil {
		return s.fail(ctx, req, result, StageRender, errors.WrapError(err, errors.CategoryFileSystem, "resolve output directory").Build())
	}
	result.SourcePath = source
	result.OutputPath = output

	s.emitStarted(ctx, req, result)
	observability.InfoContext(ctx, "Build started",
		logfields.Path(source),
		logfields.Output(output),
		slog.String("trigger", req.Trigger))

	// Stage 1: scope tree
	var (
		bc   *site.BuildContext
		root *site.Scope
	)
	err = s.runStage(ctx, result, StageTree, func(ctx context.Context) error {
		var err error
		bc, err = site.NewBuildContext(source, SiteOptions(cfg)...)
		if err != nil {
			return err
		}
		root, err = bc.BuildScope(ctx, bc.Root(), nil)
		return err
	})
	if err != nil {
		return s.fail(ctx, req, result, StageTree, err)
	}
	result.Scopes, result.Pages = treeCounts(root)
	s.recorder.SetScopes(result.Scopes)

	// Stage 2: render
	engine := render.NewEngine(bc, render.WithOutputHook(func(o render.Output) {
		s.recorder.IncPagesRendered(string(o.Type))
	}))
	err = s.runStage(ctx, result, StageRender, func(ctx context.Context) error {
		if cfg.Output.Clean {
			if err := cleanOutput(source, output); err != nil {
				return err
			}
		}
		return engine.RenderScope(ctx, root, output)
	})
	result.Files = len(engine.Outputs())
	if err != nil {
		return s.fail(ctx, req, result, StageRender, err)
	}

	// Stage 3: manifest
	err = s.runStage(ctx, result, StageManifest, func(ctx context.Context) error {
		m, err := s.buildManifest(ctx, bc, result, engine.Outputs())
		if err != nil {
			return err
		}
		result.Fingerprint = m.Fingerprint
		if !cfg.Output.Manifest {
			return nil
		}
		return m.Write(filepath.Join(output, manifestName))
	})
	if err != nil {
		return s.fail(ctx, req, result, StageManifest, err)
	}

	result.Status = BuildStatusSuccess
	finishTiming(result)
	s.recorder.ObserveBuildDuration(result.Duration)
	s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)

	observability.InfoContext(ctx, "Build completed",
		logfields.Count(result.Files),
		logfields.DurationMS(float64(result.Duration.Milliseconds())),
		slog.String("fingerprint", result.Fingerprint))

	s.emitCompleted(ctx, result)
	s.finish(ctx, req, result, nil)
	return result, nil
}

func (s *DefaultBuildService) runStage(ctx context.Context, result *BuildResult, stage string, fn func(context.Context) error) error {
	stageStart := time.Now()
	ctx = observability.WithStage(ctx, stage)
	observability.DebugContext(ctx, "Stage started")

	err := fn(ctx)

	d := time.Since(stageStart)
	result.StageDurations[stage] = d
	s.recorder.ObserveStageDuration(stage, d)
	switch {
	case err == nil:
		s.recorder.IncStageResult(stage, metrics.ResultSuccess)
	case isCancellation(ctx, err):
		s.recorder.IncStageResult(stage, metrics.ResultCanceled)
	default:
		s.recorder.IncStageResult(stage, metrics.ResultFatal)
	}
	return err
}

// fail marks the build failed or cancelled and records it.
func (s *DefaultBuildService) fail(ctx context.Context, req BuildRequest, result *BuildResult, stage string, err error) (*BuildResult, error) {
	result.FailedStage = stage
	result.Status = BuildStatusFailed
	outcome := metrics.BuildOutcomeFailed
	if isCancellation(ctx, err) {
		result.Status = BuildStatusCancelled
		outcome = metrics.BuildOutcomeCanceled
	}
	finishTiming(result)
	s.recorder.ObserveBuildDuration(result.Duration)
	s.recorder.IncBuildOutcome(outcome)

	ctx = observability.WithStage(ctx, stage)
	if result.Status == BuildStatusCancelled {
		observability.WarnContext(ctx, "Build cancelled")
	} else {
		observability.ErrorContext(ctx, "Build failed", logfields.Error(err))
	}

	s.emitFailed(ctx, result, err)
	s.finish(ctx, req, result, err)
	return result, err
}

// finish publishes the build event and exports metrics. Failures are logged only.
func (s *DefaultBuildService) finish(ctx context.Context, req BuildRequest, result *BuildResult, buildErr error) {
	// Cancelled builds are still published.
	pubCtx := context.WithoutCancel(ctx)
	event := notify.BuildEvent{
		BuildID:     result.BuildID,
		Status:      string(result.Status),
		Source:      result.SourcePath,
		Output:      result.OutputPath,
		Scopes:      result.Scopes,
		Pages:       result.Pages,
		Files:       result.Files,
		Fingerprint: result.Fingerprint,
		DurationMS:  result.Duration.Milliseconds(),
	}
	if buildErr != nil {
		event.Error = buildErr.Error()
	}
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		observability.WarnContext(ctx, "Failed to publish build event", logfields.Error(err))
	}

	if req.Config == nil || !req.Config.Metrics.Enabled || req.Config.Metrics.Textfile == "" {
		return
	}
	w, ok := s.recorder.(textfileWriter)
	if !ok {
		return
	}
	if err := w.WriteTextfile(req.Config.Metrics.Textfile); err != nil {
		observability.WarnContext(ctx, "Failed to write metrics textfile",
			logfields.Path(req.Config.Metrics.Textfile),
			logfields.Error(err))
	}
}

func finishTiming(result *BuildResult) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
}

func isCancellation(ctx context.Context, err error) bool {
	return stdErrors.Is(err, context.Canceled) ||
		stdErrors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}

// treeCounts returns the number of scopes and enumerated pages in the tree.
func treeCounts(root *site.Scope) (scopes, pages int) {
	_ = root.Walk(func(s *site.Scope, _ int) error {
		scopes++
		pages += len(s.Pages)
		return nil
	})
	return scopes, pages
}

// cleanOutput removes the output directory. It refuses to remove a directory
// that contains the source tree.
func cleanOutput(source, output string) error {
	if rel, err := filepath.Rel(output, source); err == nil && (rel == "." || !strings.HasPrefix(rel, "..")) {
		return errors.ConfigError("refusing to clean an output directory that contains the source").
			WithContext("path", output).
			Build()
	}
	if err := os.RemoveAll(output); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "clean output directory").
			WithContext("path", output).
			Build()
	}
	return nil
}
