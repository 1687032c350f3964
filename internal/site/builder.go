package site

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
)

// frame is a directory whose entries are still being enumerated.
type frame struct {
	scope   *Scope
	real    string
	depth   int
	entries []os.DirEntry
	next    int
}

// BuildScope constructs the scope for the directory at path and everything
// below it. A nil parent makes path the root, which must carry a layout.
// Repeated calls for the same path return the same Scope.
func (bc *BuildContext) BuildScope(ctx context.Context, path string, parent *Scope) (*Scope, error) {
	path = filepath.Clean(path)
	if s, ok := bc.cachedScope(path); ok {
		return s, nil
	}

	depth := 0
	for p := parent; p != nil; p = p.Parent {
		depth++
	}

	first, err := bc.openScope(ctx, path, parent, depth, nil)
	if err != nil {
		return nil, err
	}
	if first.entries == nil {
		return first.scope, nil
	}

	stack := []*frame{first}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			observability.DebugContext(ctx, "Scope built",
				logfields.Scope(top.scope.Path),
				logfields.Count(len(top.scope.Pages)))
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		name := entry.Name()
		if skipName(name) {
			continue
		}
		full := filepath.Join(top.scope.Path, name)

		isDir, err := entryIsDir(entry, full)
		if err != nil {
			return nil, err
		}
		if isDir {
			if _, ok := bc.cachedScope(full); ok {
				continue
			}
			child, err := bc.openScope(ctx, full, top.scope, top.depth+1, stack)
			if err != nil {
				return nil, err
			}
			if child.entries != nil {
				stack = append(stack, child)
			}
			continue
		}

		page, ok := bc.cachedPage(full)
		if !ok {
			if page, err = bc.BuildPage(ctx, full, top.scope); err != nil {
				return nil, err
			}
		}
		top.scope.Pages = append(top.scope.Pages, page)
	}
	return first.scope, nil
}

// openScope registers the scope for path, builds its layout and lists its
// entries. The returned frame has nil entries when the scope was already
// cached.
func (bc *BuildContext) openScope(ctx context.Context, path string, parent *Scope, depth int, active []*frame) (*frame, error) {
	if depth > bc.maxDepth {
		return nil, errors.ValidationError("directory nesting exceeds maximum depth").
			Fatal().
			WithContext("path", path).
			WithContext("max_depth", bc.maxDepth).
			Build()
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve directory").
			WithContext("path", path).
			Build()
	}
	for _, f := range active {
		if f.real == real {
			return nil, errors.FileSystemError("symlink cycle detected").
				Fatal().
				WithContext("path", path).
				WithContext("target", real).
				Build()
		}
	}

	layoutPath := ""
	for _, name := range LayoutNames {
		candidate := filepath.Join(path, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			layoutPath = candidate
		}
	}
	if parent == nil && layoutPath == "" {
		return nil, errors.ConfigError(ErrRootLayoutMissing.Message()).
			WithContext("path", path).
			Build()
	}

	s := &Scope{
		Path:     path,
		Name:     filepath.Base(path),
		Parent:   parent,
		Children: make(map[string]*Scope),
	}
	s.Root = s
	if parent != nil {
		s.Root = parent.Root
	}
	if registered := bc.storeScope(s); registered != s {
		return &frame{scope: registered}, nil
	}
	if parent != nil && !skipName(s.Name) {
		parent.Children[s.Name] = s
	}

	if layoutPath != "" {
		if s.Layout, err = bc.BuildPage(ctx, layoutPath, s); err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read directory").
			WithContext("path", path).
			Build()
	}
	if entries == nil {
		entries = []os.DirEntry{}
	}
	return &frame{scope: s, real: real, depth: depth, entries: entries}, nil
}

func entryIsDir(entry os.DirEntry, full string) (bool, error) {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.IsDir(), nil
	}
	info, err := os.Stat(full)
	if err != nil {
		return false, errors.WrapError(err, errors.CategoryFileSystem, "resolve symlink").
			WithContext("path", full).
			Build()
	}
	return info.IsDir(), nil
}
