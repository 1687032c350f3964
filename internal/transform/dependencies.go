package transform

import (
	"context"

	"github.com/hashicorp/hcl/v2/hclwrite"
)

// Pass names.
const (
	PassExtractFrontmatter    = "extract_frontmatter"
	PassResolveSpecialImports = "resolve_special_imports"
	PassDeferImports          = "defer_imports"
)

// Loader produces the value bound for a special import of the file at path.
type Loader func(ctx context.Context, path string) (any, error)

// Unit is the page being transformed.
type Unit struct {
	// Path is the absolute path of the page source.
	Path string
	File *hclwrite.File

	// Frontmatter accumulates extracted frontmatter. Never nil during Apply.
	Frontmatter map[string]any

	Loaders map[string]Loader
}

// Pass is a single source rewrite.
type Pass interface {
	// Name returns the unique identifier for this pass (lowercase snake_case)
	Name() string

	// Dependencies declares ordering constraints
	Dependencies() Dependencies

	Apply(ctx context.Context, u *Unit) error
}

// Dependencies declares explicit ordering constraints between passes.
type Dependencies struct {
	// MustRunAfter lists pass names that must complete before this one.
	// Names that are not enabled in the pipeline are ignored.
	MustRunAfter []string
}

// DefaultPasses returns all passes in registration order.
func DefaultPasses() []Pass {
	return []Pass{
		ExtractFrontmatter{},
		ResolveSpecialImports{},
		DeferImports{},
	}
}

// PassByName returns the default pass with the given name.
func PassByName(name string) (Pass, bool) {
	for _, p := range DefaultPasses() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}
