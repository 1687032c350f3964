package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "scopebuild.yaml"

// Config represents the application configuration.
type Config struct {
	Source  string        `yaml:"source"`
	Output  OutputConfig  `yaml:"output"`
	Build   BuildConfig   `yaml:"build"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	History HistoryConfig `yaml:"history"`
	Notify  NotifyConfig  `yaml:"notify"`
	Watch   WatchConfig   `yaml:"watch"`
}

// OutputConfig controls where and how rendered files are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"`    // Remove the output directory before rendering
	Manifest  bool   `yaml:"manifest"` // Write manifest.json next to the rendered files
}

// BuildConfig holds limits for tree construction and page compilation.
type BuildConfig struct {
	MaxDepth       int            `yaml:"max_depth"`
	DataExtensions []string       `yaml:"data_extensions"` // Extra import extensions decoded as YAML data
	Markdown       MarkdownConfig `yaml:"markdown"`
}

// MarkdownConfig adjusts the markdown compiler.
type MarkdownConfig struct {
	EscapeHTML bool `yaml:"escape_html"` // Drop raw HTML instead of passing it through
	HardWraps  bool `yaml:"hard_wraps"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// HistoryConfig enables the SQLite build history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NotifyConfig publishes build events to NATS when URL is set.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Interval time.Duration `yaml:"interval"` // Periodic rebuild; zero disables
}

// Load reads, expands, defaults and validates the configuration file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			Fatal().
			WithContext("path", configPath).
			Build()
	}

	return Parse(data)
}

// Parse decodes configuration from YAML bytes. Environment references are expanded first.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").
			Fatal().
			Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = ApplyDefaults(cfg)
	return cfg
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			Build()
	}

	example := Config{
		Source: "./content",
		Output: OutputConfig{
			Directory: "./public",
			Clean:     true,
			Manifest:  Default().Output.Manifest,
		},
		Build:   BuildConfig{MaxDepth: defaultMaxDepth},
		Logging: LoggingConfig{Level: string(LogLevelInfo), Format: string(LogFormatText)},
		Metrics: MetricsConfig{Enabled: false, Textfile: "./scopebuild.prom"},
		History: HistoryConfig{Enabled: true, Path: "./.scopebuild/history.db"},
		Notify:  NotifyConfig{NATSURL: "${SCOPEBUILD_NATS_URL}", Subject: defaultSubject},
		Watch:   WatchConfig{Debounce: defaultDebounce},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
