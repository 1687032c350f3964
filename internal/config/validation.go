package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// pageExtensions are claimed by page types and cannot be data files.
var pageExtensions = []string{".md", ".hcl", ".html"}

// Validate checks the defaulted configuration for contradictions.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Source) == "" {
		return errors.ConfigError("source directory must be set").Build()
	}
	if strings.TrimSpace(cfg.Output.Directory) == "" {
		return errors.ConfigError("output directory must be set").Build()
	}
	if cleanPath(cfg.Source) == cleanPath(cfg.Output.Directory) {
		return errors.ConfigError("output directory must differ from source directory").
			WithContext("path", cfg.Output.Directory).
			Build()
	}
	if insideSource(cleanPath(cfg.Source), cleanPath(cfg.Output.Directory)) {
		return errors.ConfigError("output directory must not be inside the source directory").
			WithContext("path", cfg.Output.Directory).
			Build()
	}
	for _, ext := range cfg.Build.DataExtensions {
		if ext == "" || ext == "." || slices.Contains(pageExtensions, ext) {
			return errors.ConfigError("build.data_extensions entry is empty or names a page type").
				WithContext("value", ext).
				Build()
		}
	}
	if cfg.Notify.NATSURL != "" {
		u, err := url.Parse(cfg.Notify.NATSURL)
		if err != nil || u.Scheme == "" {
			return errors.ConfigError("notify.nats_url must be an absolute URL").
				WithContext("value", cfg.Notify.NATSURL).
				Build()
		}
	}
	return nil
}

// insideSource reports whether output lies in a part of source that the scope
// tree enumerates. Names starting with "_" or "." are never enumerated.
func insideSource(source, output string) bool {
	rel, err := filepath.Rel(source, output)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	first := strings.Split(filepath.ToSlash(rel), "/")[0]
	return !strings.HasPrefix(first, "_") && !strings.HasPrefix(first, ".")
}
