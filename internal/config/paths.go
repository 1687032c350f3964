package config

import "path/filepath"

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// ResolvePaths makes Source and Output.Directory absolute, relative to base when
// they are relative. Paths from a config file are relative to that file.
func (c *Config) ResolvePaths(base string) {
	c.Source = resolveAgainst(base, c.Source)
	c.Output.Directory = resolveAgainst(base, c.Output.Directory)
	if c.History.Path != "" {
		c.History.Path = resolveAgainst(base, c.History.Path)
	}
	if c.Metrics.Textfile != "" {
		c.Metrics.Textfile = resolveAgainst(base, c.Metrics.Textfile)
	}
}

func resolveAgainst(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return cleanPath(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}
