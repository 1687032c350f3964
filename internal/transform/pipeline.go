package transform

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
)

// Pipeline applies an ordered set of passes to page-program source.
type Pipeline struct {
	passes  []Pass
	loaders map[string]Loader
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoaders registers special-import loaders keyed by file extension
// including the leading dot.
func WithLoaders(loaders map[string]Loader) Option {
	return func(p *Pipeline) { p.loaders = loaders }
}

// New orders the given passes by their declared dependencies.
func New(passes []Pass, opts ...Option) (*Pipeline, error) {
	ordered, err := order(passes)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "order transform passes").Build()
	}
	p := &Pipeline{passes: ordered}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Passes returns the pass names in execution order.
func (p *Pipeline) Passes() []string {
	names := make([]string, 0, len(p.passes))
	for _, pass := range p.passes {
		names = append(names, pass.Name())
	}
	return names
}

// Transform rewrites src and returns the new source. Extracted frontmatter is
// merged into frontmatter, which may be nil when the caller does not need it.
func (p *Pipeline) Transform(ctx context.Context, src []byte, path string, frontmatter map[string]any) ([]byte, error) {
	file, diags := hclwrite.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errors.WrapError(diags, errors.CategoryTransform, "parse page program").
			Fatal().
			WithContext("path", path).
			Build()
	}
	if frontmatter == nil {
		frontmatter = map[string]any{}
	}

	unit := &Unit{Path: path, File: file, Frontmatter: frontmatter, Loaders: p.loaders}
	for _, pass := range p.passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := pass.Apply(ctx, unit); err != nil {
			return nil, err
		}
		observability.DebugContext(ctx, "Applied transform pass",
			logfields.Pass(pass.Name()),
			logfields.Path(path))
	}
	return file.Bytes(), nil
}

func transformError(u *Unit, pass, msg string) *errors.ErrorBuilder {
	return errors.TransformError(msg).
		WithContext("path", u.Path).
		WithContext("pass", pass)
}

