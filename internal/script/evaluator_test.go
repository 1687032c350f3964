package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"git.home.luguber.info/inful/scopebuild/internal/compiler"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

func compileAndInvoke(t *testing.T, e *HCLEvaluator, src string, args cty.Value) (cty.Value, error) {
	t.Helper()
	fn, err := e.Compile("/site/page.hcl", []byte(src))
	require.NoError(t, err)
	return e.Invoke(context.Background(), fn, args)
}

func render(t *testing.T, v cty.Value) string {
	t.Helper()
	out, err := compiler.Render(v)
	require.NoError(t, err)
	return out
}

func TestInvoke_BindingsInDependencyOrder(t *testing.T) {
	src := `
return = h("main", {}, heading, items)
items = [for p in posts : h("li", {}, upper(p))]
heading = h("h1", {}, frontmatter.title)
posts = ["a", "b"]
frontmatter = {
  title = "Blog"
}
`
	val, err := compileAndInvoke(t, NewEvaluator(), src, cty.EmptyObjectVal)
	require.NoError(t, err)
	assert.Equal(t, "<main><h1>Blog</h1><li>A</li><li>B</li></main>", render(t, val))
}

func TestInvoke_ParamsChildren(t *testing.T) {
	src := `return = h("body", null, try(params.children, "empty"))`
	e := NewEvaluator()

	val, err := compileAndInvoke(t, e, src, cty.ObjectVal(map[string]cty.Value{
		"children": compiler.Raw("<p>page</p>"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "<body><p>page</p></body>", render(t, val))

	val, err = compileAndInvoke(t, e, src, cty.EmptyObjectVal)
	require.NoError(t, err)
	assert.Equal(t, "<body>empty</body>", render(t, val))
}

func TestInvoke_NoReturnYieldsNull(t *testing.T) {
	val, err := compileAndInvoke(t, NewEvaluator(), `x = 1`, cty.NilVal)
	require.NoError(t, err)
	assert.True(t, val.IsNull())
}

func TestInvoke_Builtins(t *testing.T) {
	src := `return = [title("hello world"), text(3), raw("<hr>"), join("-", sort(["b", "a"]))]`
	val, err := compileAndInvoke(t, NewEvaluator(), src, cty.EmptyObjectVal)
	require.NoError(t, err)
	assert.Equal(t, "Hello World3<hr>a-b", render(t, val))
}

func TestInvoke_DeferredImport(t *testing.T) {
	var gotFrom, gotTarget string
	imp := ImporterFunc(func(_ context.Context, from, target string) (cty.Value, error) {
		gotFrom, gotTarget = from, target
		return compiler.Raw("<nav>menu</nav>"), nil
	})
	e := NewEvaluator(WithImporter(imp))

	val, err := compileAndInvoke(t, e, "nav = import(\"./_nav.hcl\")\nreturn = h(\"header\", {}, nav)\n", cty.EmptyObjectVal)
	require.NoError(t, err)
	assert.Equal(t, "<header><nav>menu</nav></header>", render(t, val))
	assert.Equal(t, "/site/page.hcl", gotFrom)
	assert.Equal(t, "./_nav.hcl", gotTarget)
}

func TestInvoke_DeferredImportWithoutImporter(t *testing.T) {
	_, err := compileAndInvoke(t, NewEvaluator(), `return = import("./x.css")`, cty.EmptyObjectVal)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCompile))
}

func TestInvoke_ImporterErrorPassesThrough(t *testing.T) {
	cycle := errors.BuildError("render import cycle detected").Build()
	e := NewEvaluator(WithImporter(ImporterFunc(func(context.Context, string, string) (cty.Value, error) {
		return cty.NilVal, cycle
	})))

	_, err := compileAndInvoke(t, e, `return = import("./self.hcl")`, cty.EmptyObjectVal)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBuild))
	assert.ErrorIs(t, err, cycle)
}

func TestInvoke_UndefinedReference(t *testing.T) {
	_, err := compileAndInvoke(t, NewEvaluator(), `return = missing.value`, cty.EmptyObjectVal)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryCompile))
}

func TestInvoke_Cancelled(t *testing.T) {
	e := NewEvaluator()
	fn, err := e.Compile("/site/p.hcl", []byte("a = 1\nreturn = a\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Invoke(ctx, fn, cty.EmptyObjectVal)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `return = (`},
		{"untransformed import", "import \"x\" {\n  from = \"./x.md\"\n}\n"},
		{"untransformed export", `export = "x"`},
		{"reserved params", `params = 1`},
		{"binding cycle", "a = b\nb = a\n"},
		{"self reference", "a = a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvaluator().Compile("/site/bad.hcl", []byte(tt.src))
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryCompile), "got %v", err)
		})
	}
}

type foreignInvocable struct{}

func (foreignInvocable) Filename() string { return "x" }

func TestInvoke_ForeignInvocable(t *testing.T) {
	_, err := NewEvaluator().Invoke(context.Background(), foreignInvocable{}, cty.EmptyObjectVal)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryInternal))
}
