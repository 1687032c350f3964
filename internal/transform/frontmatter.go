package transform

import (
	"context"
	"maps"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
	"git.home.luguber.info/inful/scopebuild/internal/script"
)

// FrontmatterAttr is the top-level binding holding page frontmatter.
const FrontmatterAttr = "frontmatter"

// ExtractFrontmatter folds a literal frontmatter binding into the unit's
// frontmatter. The binding itself is left in the source.
type ExtractFrontmatter struct{}

func (ExtractFrontmatter) Name() string { return PassExtractFrontmatter }

func (ExtractFrontmatter) Dependencies() Dependencies { return Dependencies{} }

func (t ExtractFrontmatter) Apply(ctx context.Context, u *Unit) error {
	attr := u.File.Body().GetAttribute(FrontmatterAttr)
	if attr == nil {
		return nil
	}

	src := attr.Expr().BuildTokens(nil).Bytes()
	expr, diags := hclsyntax.ParseExpression(src, u.Path, hcl.InitialPos)
	if diags.HasErrors() {
		return transformError(u, t.Name(), "parse frontmatter").WithCause(diags).Fatal().Build()
	}
	if !isLiteral(expr) {
		observability.DebugContext(ctx, "Skipping non-literal frontmatter",
			logfields.Path(u.Path))
		return nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return transformError(u, t.Name(), "evaluate frontmatter").WithCause(diags).Fatal().Build()
	}
	if val.IsNull() || !(val.Type().IsObjectType() || val.Type().IsMapType()) {
		return transformError(u, t.Name(), "frontmatter must be an object").
			WithContext("type", val.Type().FriendlyName()).
			Fatal().
			Build()
	}

	decoded, err := script.FromValue(val)
	if err != nil {
		return transformError(u, t.Name(), "decode frontmatter").WithCause(err).Fatal().Build()
	}
	fields, _ := decoded.(map[string]any)
	maps.Copy(u.Frontmatter, fields)
	return nil
}

// isLiteral reports whether expr is built only from constants, tuples and
// objects. Variables, function calls and interpolations are rejected.
func isLiteral(expr hclsyntax.Expression) bool {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return true
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			if _, ok := part.(*hclsyntax.LiteralValueExpr); !ok {
				return false
			}
		}
		return true
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			if !isLiteral(item) {
				return false
			}
		}
		return true
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			if !isLiteral(item.KeyExpr) || !isLiteral(item.ValueExpr) {
				return false
			}
		}
		return true
	case *hclsyntax.ObjectConsKeyExpr:
		if !e.ForceNonLiteral && hcl.ExprAsKeyword(e.Wrapped) != "" {
			return true
		}
		return isLiteral(e.Wrapped)
	case *hclsyntax.UnaryOpExpr:
		return isLiteral(e.Val)
	case *hclsyntax.ParenthesesExpr:
		return isLiteral(e.Expression)
	default:
		return false
	}
}

