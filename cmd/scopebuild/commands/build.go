package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/scopebuild/internal/build"
	"git.home.luguber.info/inful/scopebuild/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory (overrides output.directory)"`
	Clean  bool   `help:"Remove the output directory before rendering"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, g, cfg)
}

// apply overlays command-line flags on the loaded configuration.
func (b *BuildCmd) apply(cfg *config.Config) error {
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Clean {
		cfg.Output.Clean = true
	}
	return config.Validate(cfg)
}

// RunBuild runs one build and prints its summary.
func RunBuild(ctx context.Context, g *Global, cfg *config.Config) error {
	svc, cleanup, err := newBuildService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.Run(ctx, build.BuildRequest{Config: cfg, Trigger: "cli"})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(g.Out, "Built %d files from %d pages in %d scopes (%s)\n",
		result.Files, result.Pages, result.Scopes, result.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(g.Out, "Output: %s\n", result.OutputPath)
	if result.Fingerprint != "" {
		_, _ = fmt.Fprintf(g.Out, "Fingerprint: %s\n", result.Fingerprint)
	}
	return nil
}
