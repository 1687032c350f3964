package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/scopebuild/internal/build"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/site"
)

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	Format string `short:"f" help:"Output format: text, json" default:"text" enum:"text,json"`
}

// ScopeInfo is the JSON form of a scope.
type ScopeInfo struct {
	Path     string      `json:"path"`
	Layout   string      `json:"layout,omitempty"`
	Pages    []PageInfo  `json:"pages"`
	Children []ScopeInfo `json:"children,omitempty"`
}

// PageInfo is the JSON form of a page.
type PageInfo struct {
	Source string        `json:"source"`
	Output string        `json:"output"`
	Type   site.PageType `json:"type"`
}

func (i *InspectCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	bc, err := site.NewBuildContext(cfg.Source, build.SiteOptions(cfg)...)
	if err != nil {
		return err
	}
	scope, err := bc.BuildScope(context.Background(), bc.Root(), nil)
	if err != nil {
		return err
	}

	if i.Format == "json" {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(describeScope(bc.Root(), scope)); err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "encode scope tree").Build()
		}
		return nil
	}
	return printTree(g, bc.Root(), scope)
}

func describeScope(root string, s *site.Scope) ScopeInfo {
	info := ScopeInfo{Path: relSlash(root, s.Path), Pages: []PageInfo{}}
	if s.Layout != nil {
		info.Layout = filepath.Base(s.Layout.Path)
	}
	for _, p := range s.Pages {
		info.Pages = append(info.Pages, PageInfo{
			Source: filepath.Base(p.Path),
			Output: p.OutputName(),
			Type:   p.Type,
		})
	}
	for _, name := range s.ChildNames() {
		info.Children = append(info.Children, describeScope(root, s.Children[name]))
	}
	return info
}

func printTree(g *Global, root string, scope *site.Scope) error {
	return scope.Walk(func(s *site.Scope, depth int) error {
		indent := strings.Repeat("  ", depth)
		name := s.Name + "/"
		if s.IsRoot() {
			name = root
		}
		layout := "(no layout)"
		if s.Layout != nil {
			layout = "layout " + filepath.Base(s.Layout.Path)
		}
		_, _ = fmt.Fprintf(g.Out, "%s%s  %s\n", indent, name, layout)
		for _, p := range s.Pages {
			_, _ = fmt.Fprintf(g.Out, "%s  %s -> %s  [%s]\n", indent, filepath.Base(p.Path), p.OutputName(), p.Type)
		}
		return nil
	})
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
