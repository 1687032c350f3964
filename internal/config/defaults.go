package config

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

const (
	defaultSource    = "./content"
	defaultOutput    = "./public"
	defaultMaxDepth  = 64
	defaultDebounce  = 300 * time.Millisecond
	defaultSubject   = "scopebuild.build.completed"
	defaultHistoryDB = "./.scopebuild/history.db"
	defaultTextfile  = "./scopebuild.prom"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type pathDefaults struct{}

func (pathDefaults) Domain() string { return "paths" }

func (pathDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Source == "" {
		cfg.Source = defaultSource
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = defaultOutput
	}
	return nil
}

type buildDefaults struct{}

func (buildDefaults) Domain() string { return "build" }

func (buildDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Build.MaxDepth <= 0 {
		cfg.Build.MaxDepth = defaultMaxDepth
	}
	for i, ext := range cfg.Build.DataExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Build.DataExtensions[i] = ext
	}
	return nil
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) error {
	level, err := logLevelNormalizer.NormalizeWithError(cfg.Logging.Level)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid logging level").Fatal().Build()
	}
	cfg.Logging.Level = string(level)
	cfg.Logging.Format = string(NormalizeLogFormat(cfg.Logging.Format))
	return nil
}

type observabilityDefaults struct{}

func (observabilityDefaults) Domain() string { return "observability" }

func (observabilityDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		cfg.Metrics.Textfile = defaultTextfile
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryDB
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = defaultSubject
	}
	return nil
}

type watchDefaults struct{}

func (watchDefaults) Domain() string { return "watch" }

func (watchDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = defaultDebounce
	}
	if cfg.Watch.Interval < 0 {
		cfg.Watch.Interval = 0
	}
	return nil
}

var appliers = []DefaultApplier{
	pathDefaults{},
	buildDefaults{},
	loggingDefaults{},
	observabilityDefaults{},
	watchDefaults{},
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
