// Package commands implements the scopebuild command line.
package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/scopebuild/internal/build"
	"git.home.luguber.info/inful/scopebuild/internal/config"
	"git.home.luguber.info/inful/scopebuild/internal/eventstore"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/metrics"
	"git.home.luguber.info/inful/scopebuild/internal/notify"
	"git.home.luguber.info/inful/scopebuild/internal/version"
)

// Global is shared state bound into every command.
type Global struct {
	// Out receives user-facing command output.
	Out io.Writer
}

// NewGlobal returns the state used by the real binary.
func NewGlobal() *Global {
	return &Global{Out: os.Stdout}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"scopebuild.yaml" env:"SCOPEBUILD_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site once"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild the site whenever the source tree changes"`
	History HistoryCmd `cmd:"" help:"List recent builds from the build history"`
	Inspect InspectCmd `cmd:"" help:"Print the scope tree without rendering"`
	About   VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; it installs a logger until the
// configuration supplies its own.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// LoadConfig loads the configuration file, resolves its paths relative to the
// file and installs the configured logger.
func (c *CLI) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(c.Config); err == nil {
		cfg.ResolvePaths(filepath.Dir(abs))
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr, c.Verbose))
	return cfg, nil
}

// newBuildService wires the metrics, history and notification backends the
// configuration enables. The returned cleanup closes them.
func newBuildService(cfg *config.Config) (*build.DefaultBuildService, func(), error) {
	svc := build.NewBuildService().WithVersion(version.Version)
	var closers []func() error

	if cfg.Metrics.Enabled {
		svc.WithRecorder(metrics.NewPrometheusRecorder(nil))
	}

	if cfg.History.Enabled {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, store.Close)
		svc.WithEventEmitter(build.NewStoreEmitter(store))
	}

	publisher, err := notify.New(cfg.Notify.NATSURL, cfg.Notify.Subject)
	if err != nil {
		// Builds still run when the broker is down.
		slog.Warn("Build notifications disabled", logfields.Error(err))
		publisher = notify.NoopPublisher{}
	}
	closers = append(closers, publisher.Close)
	svc.WithPublisher(publisher)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("Failed to close build backend", logfields.Error(err))
			}
		}
	}
	return svc, cleanup, nil
}
