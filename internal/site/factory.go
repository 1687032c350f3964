package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/scopebuild/internal/compiler"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/frontmatter"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
)

// BuildPage loads the file at path as a page owned by scope. Repeated calls
// for the same path return the same Page.
func (bc *BuildContext) BuildPage(ctx context.Context, path string, scope *Scope) (*Page, error) {
	path = filepath.Clean(path)
	if p, ok := bc.cachedPage(path); ok {
		return p, nil
	}

	typ, ok := TypeForPath(path)
	if !ok {
		return nil, errors.ValidationError("unrecognized page type").
			Fatal().
			WithContext("path", path).
			WithContext("extension", filepath.Ext(path)).
			Build()
	}

	if err := bc.enter(bc.building, path, "page import"); err != nil {
		return nil, err
	}
	defer bc.leave(bc.building, path)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundError("page not found").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read page").
			WithContext("path", path).
			Build()
	}

	base := filepath.Base(path)
	page := &Page{
		Path:        path,
		Slug:        strings.TrimSuffix(base, filepath.Ext(base)),
		Type:        typ,
		Frontmatter: map[string]any{},
		Scope:       scope,
	}

	switch typ {
	case PageTypeStaticMarkup:
		page.Markup = string(raw)
		page.Frontmatter = frontmatter.FromHTMLMeta(raw)
	case PageTypeMarkup:
		err = bc.loadMarkup(ctx, page, raw)
	case PageTypeProgrammatic:
		err = bc.loadProgram(ctx, page, raw)
	}
	if err != nil {
		return nil, err
	}

	observability.DebugContext(ctx, "Page built",
		logfields.Path(path),
		logfields.PageType(string(typ)))
	return bc.storePage(page), nil
}

func (bc *BuildContext) loadMarkup(ctx context.Context, page *Page, raw []byte) error {
	fm, body, had, _ := frontmatter.Split(raw)
	if had {
		fields, err := frontmatter.ParseYAML(fm)
		if err != nil {
			return errors.WrapError(err, errors.CategoryTransform, "parse frontmatter").
				Fatal().
				WithContext("path", page.Path).
				Build()
		}
		page.Frontmatter = fields
	}

	code, err := compiler.Compile(body, bc.compilerOpt)
	if err != nil {
		return errors.WrapError(err, errors.CategoryCompile, "compile markdown").
			Fatal().
			WithContext("path", page.Path).
			Build()
	}
	code, err = bc.frontmatterOnly.Transform(ctx, code, page.Path, page.Frontmatter)
	if err != nil {
		return err
	}
	page.Program, err = bc.evaluator.Compile(page.Path, code)
	return err
}

func (bc *BuildContext) loadProgram(ctx context.Context, page *Page, raw []byte) error {
	code, err := bc.full.Transform(ctx, raw, page.Path, page.Frontmatter)
	if err != nil {
		return err
	}
	page.Program, err = bc.evaluator.Compile(page.Path, code)
	return err
}
