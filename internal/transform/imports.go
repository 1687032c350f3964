package transform

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
	"git.home.luguber.info/inful/scopebuild/internal/script"
)

// Source vocabulary for imports and exports.
const (
	ImportBlock = "import"
	FromAttr    = "from"
	ValueAttr   = "value"
	ImportFunc  = "import"
)

const wildcardChars = "*?["

// importStmt is a parsed `import "name" { from = "..." }` block.
type importStmt struct {
	block *hclwrite.Block
	name  string
	from  string
}

func importStatements(u *Unit, pass string) ([]importStmt, error) {
	var stmts []importStmt
	seen := map[string]bool{}
	for _, b := range u.File.Body().Blocks() {
		if b.Type() != ImportBlock {
			continue
		}
		labels := b.Labels()
		if len(labels) != 1 || labels[0] == "" {
			return nil, transformError(u, pass, "import block requires exactly one name label").Fatal().Build()
		}
		name := labels[0]
		if !hclsyntax.ValidIdentifier(name) {
			return nil, transformError(u, pass, "import name is not a valid identifier").
				WithContext("import", name).Fatal().Build()
		}
		if seen[name] {
			return nil, transformError(u, pass, "duplicate import name").
				WithContext("import", name).Fatal().Build()
		}
		seen[name] = true

		attr := b.Body().GetAttribute(FromAttr)
		if attr == nil {
			return nil, transformError(u, pass, "import block is missing from").
				WithContext("import", name).Fatal().Build()
		}
		src := attr.Expr().BuildTokens(nil).Bytes()
		expr, diags := hclsyntax.ParseExpression(src, u.Path, hcl.InitialPos)
		if diags.HasErrors() {
			return nil, transformError(u, pass, "parse import source").
				WithContext("import", name).WithCause(diags).Fatal().Build()
		}
		val, diags := expr.Value(nil)
		if diags.HasErrors() || val.IsNull() || !val.Type().Equals(cty.String) {
			eb := transformError(u, pass, "import source must be a literal string").
				WithContext("import", name)
			if diags.HasErrors() {
				eb = eb.WithCause(diags)
			}
			return nil, eb.Fatal().Build()
		}
		stmts = append(stmts, importStmt{block: b, name: name, from: val.AsString()})
	}
	return stmts, nil
}

// ResolveSpecialImports replaces imports of loader-backed files with
// constant bindings of the loaded values.
type ResolveSpecialImports struct{}

func (ResolveSpecialImports) Name() string { return PassResolveSpecialImports }

func (ResolveSpecialImports) Dependencies() Dependencies { return Dependencies{} }

func (t ResolveSpecialImports) Apply(ctx context.Context, u *Unit) error {
	stmts, err := importStatements(u, t.Name())
	if err != nil {
		return err
	}
	body := u.File.Body()
	dir := filepath.Dir(u.Path)

	for _, stmt := range stmts {
		load, ok := u.Loaders[strings.ToLower(filepath.Ext(stmt.from))]
		if !ok {
			continue
		}
		if body.GetAttribute(stmt.name) != nil {
			return transformError(u, t.Name(), "import name collides with an existing binding").
				WithContext("import", stmt.name).Fatal().Build()
		}

		target := filepath.Join(dir, filepath.FromSlash(stmt.from))
		var bound cty.Value
		if strings.ContainsAny(stmt.from, wildcardChars) {
			matches, err := filepath.Glob(target)
			if err != nil {
				return transformError(u, t.Name(), "invalid import pattern").
					WithContext("import", stmt.from).WithCause(err).Fatal().Build()
			}
			values := make([]cty.Value, 0, len(matches))
			for _, m := range matches {
				v, err := t.load(ctx, u, load, m)
				if err != nil {
					return err
				}
				values = append(values, v)
			}
			bound = cty.EmptyTupleVal
			if len(values) > 0 {
				bound = cty.TupleVal(values)
			}
			observability.DebugContext(ctx, "Resolved glob import",
				logfields.Path(u.Path),
				logfields.Import(stmt.from),
				logfields.Count(len(matches)))
		} else {
			bound, err = t.load(ctx, u, load, target)
			if err != nil {
				return err
			}
		}

		body.RemoveBlock(stmt.block)
		body.SetAttributeValue(stmt.name, bound)
	}
	return nil
}

func (t ResolveSpecialImports) load(ctx context.Context, u *Unit, load Loader, path string) (cty.Value, error) {
	if err := ctx.Err(); err != nil {
		return cty.NilVal, err
	}
	raw, err := load(ctx, path)
	if err != nil {
		return cty.NilVal, transformError(u, t.Name(), "load special import").
			WithContext("import", path).WithCause(err).Fatal().Build()
	}
	v, err := script.ToValue(raw)
	if err != nil {
		return cty.NilVal, transformError(u, t.Name(), "convert special import").
			WithContext("import", path).WithCause(err).Fatal().Build()
	}
	return v, nil
}

// DeferImports rewrites the remaining imports into import() calls evaluated
// at invocation, and turns the default export into the program's return.
type DeferImports struct{}

func (DeferImports) Name() string { return PassDeferImports }

func (DeferImports) Dependencies() Dependencies {
	return Dependencies{MustRunAfter: []string{PassResolveSpecialImports}}
}

func (t DeferImports) Apply(_ context.Context, u *Unit) error {
	stmts, err := importStatements(u, t.Name())
	if err != nil {
		return err
	}
	body := u.File.Body()
	for _, stmt := range stmts {
		if body.GetAttribute(stmt.name) != nil {
			return transformError(u, t.Name(), "import name collides with an existing binding").
				WithContext("import", stmt.name).Fatal().Build()
		}
		body.RemoveBlock(stmt.block)
		body.SetAttributeRaw(stmt.name, hclwrite.TokensForFunctionCall(ImportFunc,
			hclwrite.TokensForValue(cty.StringVal(stmt.from)),
		))
	}
	return t.rewriteExport(u)
}

func (t DeferImports) rewriteExport(u *Unit) error {
	body := u.File.Body()
	attr := body.GetAttribute(script.ExportAttr)

	var blocks []*hclwrite.Block
	for _, b := range body.Blocks() {
		if b.Type() == script.ExportAttr {
			blocks = append(blocks, b)
		}
	}

	count := len(blocks)
	if attr != nil {
		count++
	}
	switch {
	case count == 0:
		return nil
	case count > 1:
		return transformError(u, t.Name(), "page program declares more than one export").
			WithContext("count", count).Fatal().Build()
	case body.GetAttribute(script.ReturnAttr) != nil:
		return transformError(u, t.Name(), "page program declares both export and return").Fatal().Build()
	}

	if attr != nil {
		body.RenameAttribute(script.ExportAttr, script.ReturnAttr)
		return nil
	}

	b := blocks[0]
	value := b.Body().GetAttribute(ValueAttr)
	if value == nil {
		return transformError(u, t.Name(), "export block is missing value").Fatal().Build()
	}
	tokens := value.Expr().BuildTokens(nil)
	body.RemoveBlock(b)
	body.SetAttributeRaw(script.ReturnAttr, tokens)
	return nil
}
