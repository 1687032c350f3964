package site

import (
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/scopebuild/internal/script"
)

// PageType selects how a page is loaded and rendered.
type PageType string

const (
	PageTypeMarkup       PageType = "markup"
	PageTypeProgrammatic PageType = "programmatic"
	PageTypeStaticMarkup PageType = "staticMarkup"
)

// Filesystem conventions.
const (
	ReservedPrefix = "_"
	Slot           = "<slot></slot>"
	OutputExt      = ".html"
)

// LayoutNames are checked in order; the last one present wins.
var LayoutNames = []string{"_layout.html", "_layout.hcl"}

var pageTypes = map[string]PageType{
	".md":   PageTypeMarkup,
	".hcl":  PageTypeProgrammatic,
	".html": PageTypeStaticMarkup,
}

// TypeForPath returns the page type for the extension of path.
func TypeForPath(path string) (PageType, bool) {
	t, ok := pageTypes[strings.ToLower(filepath.Ext(path))]
	return t, ok
}

// Scope is one source directory.
type Scope struct {
	Path string
	Name string

	// Root and Parent are back-references used for layout lookup.
	Root   *Scope
	Parent *Scope

	Layout   *Page
	Children map[string]*Scope
	Pages    []*Page
}

// IsRoot reports whether s is the top of the tree.
func (s *Scope) IsRoot() bool { return s.Parent == nil }

// ChildNames returns the child scope names in sorted order.
func (s *Scope) ChildNames() []string {
	names := make([]string, 0, len(s.Children))
	for name := range s.Children {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Walk visits s and its descendants depth-first in sorted-name order.
func (s *Scope) Walk(fn func(scope *Scope, depth int) error) error {
	type item struct {
		scope *Scope
		depth int
	}
	stack := []item{{scope: s}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := fn(cur.scope, cur.depth); err != nil {
			return err
		}
		names := cur.scope.ChildNames()
		for i := len(names) - 1; i >= 0; i-- {
			stack = append(stack, item{scope: cur.scope.Children[names[i]], depth: cur.depth + 1})
		}
	}
	return nil
}

// Page is one content file.
type Page struct {
	Path string
	Slug string
	Type PageType

	// Frontmatter is never nil.
	Frontmatter map[string]any

	// Markup holds the raw text of a staticMarkup page.
	Markup string
	// Program holds the compiled program of markup and programmatic pages.
	Program script.Invocable

	Scope *Scope
}

// OutputName is the file name the page renders to.
func (p *Page) OutputName() string { return p.Slug + OutputExt }

func skipName(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix) || strings.HasPrefix(name, ".")
}
