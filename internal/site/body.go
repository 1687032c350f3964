package site

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"git.home.luguber.info/inful/scopebuild/internal/compiler"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
)

// RenderBody renders page on its own, without any layout.
func (bc *BuildContext) RenderBody(ctx context.Context, page *Page) (string, error) {
	return bc.renderBody(ctx, page, "", false)
}

// WrapBody renders layout around inner. Static and markdown layouts replace
// their slot with inner; programs receive it as params.children.
func (bc *BuildContext) WrapBody(ctx context.Context, layout *Page, inner string) (string, error) {
	return bc.renderBody(ctx, layout, inner, true)
}

func (bc *BuildContext) renderBody(ctx context.Context, page *Page, nested string, hasNested bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch page.Type {
	case PageTypeStaticMarkup:
		if hasNested {
			return fillSlot(page.Markup, nested), nil
		}
		return page.Markup, nil

	case PageTypeMarkup:
		out, err := bc.invoke(ctx, page, cty.EmptyObjectVal)
		if err != nil {
			return "", err
		}
		if hasNested {
			out = fillSlot(out, nested)
		}
		return out, nil

	case PageTypeProgrammatic:
		params := cty.EmptyObjectVal
		if hasNested {
			params = cty.ObjectVal(map[string]cty.Value{"children": compiler.Raw(nested)})
		}
		return bc.invoke(ctx, page, params)

	default:
		return "", errors.InternalError("page has no rendering strategy").
			WithContext("path", page.Path).
			WithContext("type", string(page.Type)).
			Build()
	}
}

func (bc *BuildContext) invoke(ctx context.Context, page *Page, params cty.Value) (string, error) {
	if err := bc.enter(bc.rendering, page.Path, "render import"); err != nil {
		return "", err
	}
	defer bc.leave(bc.rendering, page.Path)

	doc, err := bc.evaluator.Invoke(ctx, page.Program, params)
	if err != nil {
		return "", err
	}
	out, err := compiler.Render(doc)
	if err != nil {
		if ce, ok := errors.AsClassified(err); ok {
			return "", ce.WithContext("path", page.Path)
		}
		return "", err
	}
	return out, nil
}

// fillSlot replaces the first slot in markup with inner.
func fillSlot(markup, inner string) string {
	return strings.Replace(markup, Slot, inner, 1)
}

// Import resolves a deferred import made by the page at from. The target
// page is rendered without layouts and returned as raw markup.
func (bc *BuildContext) Import(ctx context.Context, from, target string) (cty.Value, error) {
	path := target
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(from), filepath.FromSlash(target))
	}
	if _, ok := TypeForPath(path); !ok {
		return cty.NilVal, errors.CompileError("import target has no page type").
			WithContext("path", from).
			WithContext("import", target).
			Build()
	}

	page, err := bc.ResolvePage(ctx, path)
	if err != nil {
		return cty.NilVal, err
	}
	body, err := bc.RenderBody(ctx, page)
	if err != nil {
		return cty.NilVal, err
	}
	observability.DebugContext(ctx, "Resolved deferred import",
		logfields.Path(from),
		logfields.Import(target))
	return compiler.Raw(body), nil
}
