package build

import (
	"git.home.luguber.info/inful/scopebuild/internal/compiler"
	"git.home.luguber.info/inful/scopebuild/internal/config"
	"git.home.luguber.info/inful/scopebuild/internal/site"
)

// SiteOptions translates the build section of cfg into BuildContext options.
func SiteOptions(cfg *config.Config) []site.Option {
	opts := compiler.DefaultOptions()
	opts.Unsafe = !cfg.Build.Markdown.EscapeHTML
	opts.HardWraps = cfg.Build.Markdown.HardWraps

	siteOpts := []site.Option{
		site.WithMaxDepth(cfg.Build.MaxDepth),
		site.WithCompilerOptions(opts),
	}
	for _, ext := range cfg.Build.DataExtensions {
		siteOpts = append(siteOpts, site.WithDataExtension(ext))
	}
	return siteOpts
}
