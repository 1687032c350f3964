package site

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/transform"
)

func (bc *BuildContext) defaultLoaders() map[string]transform.Loader {
	return map[string]transform.Loader{
		".md":   bc.loadMarkdownSummary,
		".yaml": bc.loadData,
		".yml":  bc.loadData,
		".json": bc.loadData,
	}
}

// loadMarkdownSummary resolves a markdown page and describes it for listings.
// path is the absolute file path and source the path below the source root.
func (bc *BuildContext) loadMarkdownSummary(ctx context.Context, path string) (any, error) {
	page, err := bc.ResolvePage(ctx, path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(bc.root, page.Path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"frontmatter": page.Frontmatter,
		"path":        page.Path,
		"source":      filepath.ToSlash(rel),
		"url":         bc.URL(page),
	}, nil
}

// loadData decodes a YAML or JSON data file.
func (bc *BuildContext) loadData(_ context.Context, path string) (any, error) {
	if err := bc.checkInRoot(path); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundError("data file not found").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read data file").
			WithContext("path", path).
			Build()
	}
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "decode data file").
			WithContext("path", path).
			Build()
	}
	return data, nil
}

// URL returns the site-absolute URL the page renders to.
func (bc *BuildContext) URL(page *Page) string {
	rel, err := filepath.Rel(bc.root, page.Path)
	if err != nil {
		rel = filepath.Base(page.Path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + OutputExt
	return "/" + filepath.ToSlash(rel)
}
