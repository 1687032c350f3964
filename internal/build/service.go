package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/scopebuild/internal/config"
)

// BuildService is the canonical interface for executing site builds.
type BuildService interface {
	// Run builds the scope tree, renders it and writes the manifest.
	// A failed or cancelled build still returns a BuildResult.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Config is the loaded configuration for this build.
	Config *config.Config

	// Trigger names what started the build: "cli", "watch" or "schedule".
	Trigger string
}

// Build stage names.
const (
	StageTree     = "tree"
	StageRender   = "render"
	StageManifest = "manifest"
)

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	// BuildID identifies this run in logs, history and notifications.
	BuildID string

	// Status indicates overall build outcome.
	Status BuildStatus

	// SourcePath and OutputPath are the absolute source root and output directory.
	SourcePath string
	OutputPath string

	Scopes int
	Pages  int
	Files  int

	// Fingerprint is the aggregate manifest fingerprint of the written files.
	Fingerprint string

	// FailedStage is set when Status is failed or cancelled.
	FailedStage string

	// StageDurations records the wall time of every stage that ran.
	StageDurations map[string]time.Duration

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess
}
