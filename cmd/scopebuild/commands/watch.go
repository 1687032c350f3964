package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/scopebuild/internal/build"
	"git.home.luguber.info/inful/scopebuild/internal/config"
	"git.home.luguber.info/inful/scopebuild/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Output string `short:"o" help:"Output directory (overrides output.directory)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if w.Output != "" {
		cfg.Output.Directory = w.Output
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunWatch(ctx, cfg)
}

// RunWatch rebuilds on change until ctx is done. Each rebuild gets a fresh
// build context from the build service.
func RunWatch(ctx context.Context, cfg *config.Config) error {
	svc, cleanup, err := newBuildService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ignore := []string{cfg.Output.Directory}
	if cfg.History.Enabled {
		for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
			ignore = append(ignore, cfg.History.Path+suffix)
		}
	}
	if cfg.Metrics.Enabled {
		ignore = append(ignore, cfg.Metrics.Textfile)
	}

	w, err := watch.New(cfg.Source, func(ctx context.Context, trigger string) error {
		_, err := svc.Run(ctx, build.BuildRequest{Config: cfg, Trigger: trigger})
		return err
	}, watch.Options{
		Debounce: cfg.Watch.Debounce,
		Interval: cfg.Watch.Interval,
		Ignore:   ignore,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
