// Package watch rebuilds the site when the source tree changes or on a
// fixed interval.
package watch

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/scopebuild/internal/logfields"
)

// Build triggers.
const (
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
)

// BuildFunc runs one build. Errors are logged by the caller of Run.
type BuildFunc func(ctx context.Context, trigger string) error

// Runner serializes builds. A request that arrives while a build is running
// is coalesced with every other such request into one follow-up build.
type Runner struct {
	build   BuildFunc
	pending chan string
}

// NewRunner returns a runner for build.
func NewRunner(build BuildFunc) *Runner {
	return &Runner{build: build, pending: make(chan string, 1)}
}

// Request asks for a build and never blocks.
func (r *Runner) Request(trigger string) {
	select {
	case r.pending <- trigger:
	default:
		// A build is already pending.
	}
}

// Run executes requested builds one at a time until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-r.pending:
			if ctx.Err() != nil {
				return
			}
			if err := r.build(ctx, trigger); err != nil {
				slog.Warn("Rebuild failed",
					slog.String("trigger", trigger),
					logfields.Error(err))
			}
		}
	}
}
