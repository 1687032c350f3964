package site

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func newContext(t *testing.T, root string, opts ...Option) *BuildContext {
	t.Helper()
	bc, err := NewBuildContext(root, opts...)
	require.NoError(t, err)
	return bc
}

func pageSlugs(pages []*Page) []string {
	slugs := make([]string, 0, len(pages))
	for _, p := range pages {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}

const rootLayout = "<html><body><slot></slot></body></html>"

func TestBuildScope_RootWithoutLayout(t *testing.T) {
	root := writeTree(t, map[string]string{"index.html": "<p>hi</p>"})
	bc := newContext(t, root)

	_, err := bc.BuildScope(context.Background(), root, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrRootLayoutMissing))
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestBuildScope_Tree(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html":       rootLayout,
		"index.html":         "<p>home</p>",
		"about.md":           "# About\n",
		"_site.yaml":         "name: demo\n",
		".hidden/page.html":  "<p>no</p>",
		"_partials/nav.html": "<nav></nav>",
		"blog/_layout.hcl":   `return = h("div", {class = "blog"}, params.children)`,
		"blog/post.md":       "# Post\n",
		"docs/guide.html":    "<p>guide</p>",
	})
	bc := newContext(t, root)

	scope, err := bc.BuildScope(context.Background(), root, nil)
	require.NoError(t, err)

	assert.True(t, scope.IsRoot())
	assert.Same(t, scope, scope.Root)
	require.NotNil(t, scope.Layout)
	assert.Equal(t, PageTypeStaticMarkup, scope.Layout.Type)
	assert.Equal(t, []string{"about", "index"}, pageSlugs(scope.Pages))
	assert.Equal(t, []string{"blog", "docs"}, scope.ChildNames())

	blog := scope.Children["blog"]
	require.NotNil(t, blog)
	assert.Same(t, scope, blog.Parent)
	assert.Same(t, scope, blog.Root)
	require.NotNil(t, blog.Layout)
	assert.Equal(t, PageTypeProgrammatic, blog.Layout.Type)
	assert.Equal(t, []string{"post"}, pageSlugs(blog.Pages))
	assert.Same(t, blog, blog.Pages[0].Scope)

	docs := scope.Children["docs"]
	require.NotNil(t, docs)
	assert.Nil(t, docs.Layout)

	var visited []string
	require.NoError(t, scope.Walk(func(s *Scope, depth int) error {
		visited = append(visited, s.Name)
		return nil
	}))
	assert.Equal(t, []string{filepath.Base(root), "blog", "docs"}, visited)

	scopes, pages := bc.Counts()
	assert.Equal(t, 3, scopes)
	assert.Equal(t, 6, pages)
}

func TestBuildScope_CacheIdentity(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html":   rootLayout,
		"sub/page.html":  "<p>x</p>",
		"sub/other.html": "<p>y</p>",
	})
	bc := newContext(t, root)
	ctx := context.Background()

	first, err := bc.BuildScope(ctx, root, nil)
	require.NoError(t, err)
	second, err := bc.BuildScope(ctx, root, nil)
	require.NoError(t, err)
	assert.Same(t, first, second)

	sub, err := bc.ResolveScope(ctx, filepath.Join(root, "sub"))
	require.NoError(t, err)
	assert.Same(t, first.Children["sub"], sub)

	page, err := bc.ResolvePage(ctx, filepath.Join(root, "sub", "page.html"))
	require.NoError(t, err)
	assert.Same(t, sub.Pages[1], page)
}

func TestBuildScope_LastLayoutWins(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"_layout.hcl":  `return = h("main", {}, params.children)`,
	})
	bc := newContext(t, root)

	scope, err := bc.BuildScope(context.Background(), root, nil)
	require.NoError(t, err)
	assert.Equal(t, PageTypeProgrammatic, scope.Layout.Type)
	assert.Empty(t, scope.Pages)
}

func TestBuildScope_MaxDepth(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html":  rootLayout,
		"a/b/page.html": "<p>deep</p>",
	})
	bc := newContext(t, root, WithMaxDepth(1))

	_, err := bc.BuildScope(context.Background(), root, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestBuildScope_SymlinkCycle(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"a/page.html":  "<p>a</p>",
	})
	if err := os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "a", "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	bc := newContext(t, root)

	_, err := bc.BuildScope(context.Background(), root, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
	assert.Contains(t, err.Error(), "symlink cycle")
}

func TestBuildScope_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"page.html":    "<p>x</p>",
	})
	bc := newContext(t, root)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bc.BuildScope(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPage_UnrecognizedExtension(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"notes.txt":    "plain",
	})
	bc := newContext(t, root)

	_, err := bc.BuildScope(context.Background(), root, nil)
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryValidation, ce.Category())
	assert.True(t, ce.IsFatal())
	ext, ok := ce.Context().GetString("extension")
	require.True(t, ok)
	assert.Equal(t, ".txt", ext)
}

func TestBuildPage_Markup(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"about.md":     "---\ntitle: About us\ntags: [a, b]\n---\n# Welcome\n\n## Team\n",
	})
	bc := newContext(t, root)

	page, err := bc.ResolvePage(context.Background(), filepath.Join(root, "about.md"))
	require.NoError(t, err)
	assert.Equal(t, PageTypeMarkup, page.Type)
	assert.Equal(t, "about", page.Slug)
	assert.Equal(t, "about.html", page.OutputName())
	assert.Equal(t, "About us", page.Frontmatter["title"])
	assert.Equal(t, []any{"a", "b"}, page.Frontmatter["tags"])
	assert.Equal(t, "Welcome", page.Frontmatter["heading"])

	toc, ok := page.Frontmatter["toc"].([]any)
	require.True(t, ok)
	require.Len(t, toc, 2)
	assert.Equal(t, "Team", toc[1].(map[string]any)["text"])
	require.NotNil(t, page.Program)
}

func TestBuildPage_MarkupWithoutFrontmatter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"plain.md":     "just text --- not a delimiter\n",
	})
	bc := newContext(t, root)

	page, err := bc.ResolvePage(context.Background(), filepath.Join(root, "plain.md"))
	require.NoError(t, err)
	assert.NotContains(t, page.Frontmatter, "title")
	assert.Equal(t, []any{}, page.Frontmatter["toc"])

	body, err := bc.RenderBody(context.Background(), page)
	require.NoError(t, err)
	assert.Contains(t, body, "just text --- not a delimiter")
}

func TestBuildPage_MarkupTextBeforeDelimiter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"notes.md":     "intro\n\n---\ntitle: Not frontmatter\n---\nrest\n",
	})
	bc := newContext(t, root)
	ctx := context.Background()

	page, err := bc.ResolvePage(ctx, filepath.Join(root, "notes.md"))
	require.NoError(t, err)
	assert.NotContains(t, page.Frontmatter, "title")

	body, err := bc.RenderBody(ctx, page)
	require.NoError(t, err)
	assert.Contains(t, body, "<hr")
	assert.Contains(t, body, "title: Not frontmatter")
}

func TestBuildPage_StaticMarkupMeta(t *testing.T) {
	src := `<html><head><meta name="title" content="Home"><meta charset="utf-8"></head><body><slot></slot></body></html>`
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"index.html":   src,
	})
	bc := newContext(t, root)

	page, err := bc.ResolvePage(context.Background(), filepath.Join(root, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Home"}, page.Frontmatter)
	assert.Equal(t, src, page.Markup)
}

func TestBuildPage_ProgrammaticFrontmatter(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"page.hcl":     "frontmatter = { title = \"Programs\" }\nexport = h(\"h1\", {}, frontmatter.title)\n",
	})
	bc := newContext(t, root)

	page, err := bc.ResolvePage(context.Background(), filepath.Join(root, "page.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "Programs", page.Frontmatter["title"])

	body, err := bc.RenderBody(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Programs</h1>", body)
}

func TestResolve_OutsideRoot(t *testing.T) {
	root := writeTree(t, map[string]string{"_layout.html": rootLayout})
	bc := newContext(t, root)

	_, err := bc.ResolveScope(context.Background(), filepath.Dir(root))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	_, err = bc.ResolvePage(context.Background(), filepath.Join(filepath.Dir(root), "x.md"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestSpecialImports_MarkdownListing(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"index.hcl": `
import "posts" {
  from = "./posts/*.md"
}
import "site" {
  from = "./_site.yaml"
}
export = h("ul", {title = site.name}, [for p in posts : h("li", {}, h("a", {href = p.url}, p.frontmatter.title))])
`,
		"_site.yaml":   "name: Demo\n",
		"posts/b.md":   "---\ntitle: Second\n---\nbody\n",
		"posts/a.md":   "---\ntitle: First\n---\nbody\n",
		"posts/c.html": "<p>not listed</p>",
	})
	bc := newContext(t, root)
	ctx := context.Background()

	scope, err := bc.BuildScope(ctx, root, nil)
	require.NoError(t, err)

	// The import resolved the posts scope before the builder reached it.
	posts := scope.Children["posts"]
	require.NotNil(t, posts)
	assert.Equal(t, []string{"a", "b", "c"}, pageSlugs(posts.Pages))

	index := scope.Pages[0]
	body, err := bc.RenderBody(ctx, index)
	require.NoError(t, err)
	assert.Equal(t,
		`<ul title="Demo"><li><a href="/posts/a.html">First</a></li><li><a href="/posts/b.html">Second</a></li></ul>`,
		body)
}

func TestLoaders_MarkdownSummary(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"posts/a.md":   "---\ntitle: First\n---\nbody\n",
	})
	bc := newContext(t, root)

	got, err := bc.loadMarkdownSummary(context.Background(), filepath.Join(root, "posts", "a.md"))
	require.NoError(t, err)
	summary, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(bc.Root(), "posts", "a.md"), summary["path"])
	assert.True(t, filepath.IsAbs(summary["path"].(string)))
	assert.Equal(t, "posts/a.md", summary["source"])
	assert.Equal(t, "/posts/a.html", summary["url"])
	fm, ok := summary["frontmatter"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "First", fm["title"])
}

func TestLoaders_DataOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(parent, "x.yaml"), []byte("a: 1\n"), 0o644))
	root := filepath.Join(parent, "site")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "_layout.html"), []byte(rootLayout), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "local.yaml"), []byte("a: 2\n"), 0o644))
	bc := newContext(t, root)

	_, err := bc.loadData(context.Background(), filepath.Join(root, "..", "x.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	got, err := bc.loadData(context.Background(), filepath.Join(root, "local.yaml"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 2}, got)
}

func TestRenderBody_Slots(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"_layout.md":   "ignored\n",
		"wrap.hcl":     `return = h("section", {}, try(params.children, "empty"))`,
		"frame.md":     "Before\n\n<slot></slot>\n",
	})
	bc := newContext(t, root)
	ctx := context.Background()

	scope, err := bc.BuildScope(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, PageTypeStaticMarkup, scope.Layout.Type)

	out, err := bc.WrapBody(ctx, scope.Layout, "<p>x</p>")
	require.NoError(t, err)
	assert.Equal(t, "<html><body><p>x</p></body></html>", out)

	out, err = bc.RenderBody(ctx, scope.Layout)
	require.NoError(t, err)
	assert.Equal(t, rootLayout, out)

	wrap, err := bc.ResolvePage(ctx, filepath.Join(root, "wrap.hcl"))
	require.NoError(t, err)
	out, err = bc.WrapBody(ctx, wrap, "<b>in</b>")
	require.NoError(t, err)
	assert.Equal(t, "<section><b>in</b></section>", out)
	out, err = bc.RenderBody(ctx, wrap)
	require.NoError(t, err)
	assert.Equal(t, "<section>empty</section>", out)

	frame, err := bc.ResolvePage(ctx, filepath.Join(root, "frame.md"))
	require.NoError(t, err)
	out, err = bc.WrapBody(ctx, frame, "<i>inner</i>")
	require.NoError(t, err)
	assert.Contains(t, out, "Before")
	assert.Contains(t, out, "<i>inner</i>")
	assert.NotContains(t, out, Slot)
}

func TestImport_Deferred(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"_nav.hcl":     `return = h("nav", {}, "menu")`,
		"index.hcl": `
import "nav" {
  from = "./_nav.hcl"
}
export "Index" {
  value = h("header", {}, nav)
}
`,
	})
	bc := newContext(t, root)
	ctx := context.Background()

	scope, err := bc.BuildScope(ctx, root, nil)
	require.NoError(t, err)
	require.Len(t, scope.Pages, 1)

	out, err := bc.RenderBody(ctx, scope.Pages[0])
	require.NoError(t, err)
	assert.Equal(t, "<header><nav>menu</nav></header>", out)
}

func TestImport_Errors(t *testing.T) {
	root := writeTree(t, map[string]string{
		"_layout.html": rootLayout,
		"self.hcl":     "import \"me\" {\n  from = \"./self.hcl\"\n}\nreturn = me\n",
		"style.hcl":    "import \"css\" {\n  from = \"./site.css\"\n}\nreturn = css\n",
		"gone.hcl":     "import \"part\" {\n  from = \"./missing.hcl\"\n}\nreturn = part\n",
	})
	bc := newContext(t, root)
	ctx := context.Background()

	self, err := bc.ResolvePage(ctx, filepath.Join(root, "self.hcl"))
	require.NoError(t, err)
	_, err = bc.RenderBody(ctx, self)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBuild), err.Error())

	style, err := bc.ResolvePage(ctx, filepath.Join(root, "style.hcl"))
	require.NoError(t, err)
	_, err = bc.RenderBody(ctx, style)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCompile), err.Error())

	gone, err := bc.ResolvePage(ctx, filepath.Join(root, "gone.hcl"))
	require.NoError(t, err)
	_, err = bc.RenderBody(ctx, gone)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound), err.Error())
}

func TestURL(t *testing.T) {
	bc := newContext(t, "/src")
	assert.Equal(t, "/blog/post.html", bc.URL(&Page{Path: "/src/blog/post.md"}))
	assert.Equal(t, "/index.html", bc.URL(&Page{Path: "/src/index.hcl"}))
}
