package site

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

func (bc *BuildContext) checkInRoot(path string) error {
	rel, err := filepath.Rel(bc.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.ValidationError("path is outside the source root").
			WithContext("path", path).
			WithContext("root", bc.root).
			Build()
	}
	return nil
}

// ResolveScope returns the scope for the directory at path, building it and
// any missing ancestors on first use.
func (bc *BuildContext) ResolveScope(ctx context.Context, path string) (*Scope, error) {
	path = filepath.Clean(path)
	if s, ok := bc.cachedScope(path); ok {
		return s, nil
	}
	if err := bc.checkInRoot(path); err != nil {
		return nil, err
	}
	if path == bc.root {
		return bc.BuildScope(ctx, path, nil)
	}

	parent, err := bc.ResolveScope(ctx, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return bc.BuildScope(ctx, path, parent)
}

// ResolvePage returns the page for the file at path, resolving its scope
// first so the page is owned by the right directory.
func (bc *BuildContext) ResolvePage(ctx context.Context, path string) (*Page, error) {
	path = filepath.Clean(path)
	if p, ok := bc.cachedPage(path); ok {
		return p, nil
	}
	if err := bc.checkInRoot(path); err != nil {
		return nil, err
	}

	scope, err := bc.ResolveScope(ctx, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	if p, ok := bc.cachedPage(path); ok {
		return p, nil
	}
	return bc.BuildPage(ctx, path, scope)
}
