// Package render composes pages with their layouts and writes the output tree.
package render

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
	"git.home.luguber.info/inful/scopebuild/internal/site"
)

// Output describes one written file.
type Output struct {
	// Path is relative to the output directory, slash separated.
	Path     string
	Source   string
	Type     site.PageType
	Bytes    int
	Duration time.Duration
}

// Engine renders scopes of a single build.
type Engine struct {
	bc      *site.BuildContext
	outputs []Output
	hook    func(Output)
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOutputHook registers a callback invoked after each file is written.
func WithOutputHook(fn func(Output)) EngineOption {
	return func(e *Engine) { e.hook = fn }
}

// NewEngine returns an engine bound to bc.
func NewEngine(bc *site.BuildContext, opts ...EngineOption) *Engine {
	e := &Engine{bc: bc}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outputs lists the files written so far in write order.
func (e *Engine) Outputs() []Output {
	out := make([]Output, len(e.outputs))
	copy(out, e.outputs)
	return out
}

// RenderPage renders page wrapped in its own layout and every ancestor
// layout, innermost first.
func (e *Engine) RenderPage(ctx context.Context, page *site.Page) (string, error) {
	body, err := e.bc.RenderBody(ctx, page)
	if err != nil {
		return "", err
	}
	for s := page.Scope; s != nil; s = s.Parent {
		if s.Layout == nil {
			continue
		}
		if body, err = e.bc.WrapBody(ctx, s.Layout, body); err != nil {
			return "", err
		}
	}
	return body, nil
}

type pending struct {
	scope *site.Scope
	dir   string
	rel   string
}

// RenderScope writes every page of scope into outputDir and recurses into
// child scopes, creating one output directory per child.
func (e *Engine) RenderScope(ctx context.Context, scope *site.Scope, outputDir string) error {
	stack := []pending{{scope: scope, dir: outputDir}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := os.MkdirAll(cur.dir, 0o755); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
				WithContext("path", cur.dir).
				Build()
		}
		sctx := observability.WithScope(ctx, cur.scope.Path)
		for _, page := range cur.scope.Pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.writePage(sctx, page, cur.dir, cur.rel); err != nil {
				return err
			}
		}

		names := cur.scope.ChildNames()
		for i := len(names) - 1; i >= 0; i-- {
			name := names[i]
			stack = append(stack, pending{
				scope: cur.scope.Children[name],
				dir:   filepath.Join(cur.dir, name),
				rel:   filepath.Join(cur.rel, name),
			})
		}
	}
	return nil
}

func (e *Engine) writePage(ctx context.Context, page *site.Page, dir, rel string) error {
	start := time.Now()
	markup, err := e.RenderPage(ctx, page)
	if err != nil {
		return err
	}

	target := filepath.Join(dir, page.OutputName())
	if err := os.WriteFile(target, []byte(markup), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write output").
			WithContext("path", target).
			Build()
	}

	out := Output{
		Path:     filepath.ToSlash(filepath.Join(rel, page.OutputName())),
		Source:   page.Path,
		Type:     page.Type,
		Bytes:    len(markup),
		Duration: time.Since(start),
	}
	e.outputs = append(e.outputs, out)
	if e.hook != nil {
		e.hook(out)
	}
	observability.DebugContext(ctx, "Page rendered",
		logfields.Path(page.Path),
		logfields.Output(out.Path),
		logfields.PageType(string(page.Type)))
	return nil
}
