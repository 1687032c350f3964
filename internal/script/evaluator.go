package script

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// Reserved names in a page program.
const (
	ParamsVar  = "params"
	ReturnAttr = "return"
	ExportAttr = "export"
)

// Invocable is a compiled page program.
type Invocable interface {
	Filename() string
}

// Evaluator compiles transformed page source and invokes the result.
type Evaluator interface {
	Compile(filename string, src []byte) (Invocable, error)
	Invoke(ctx context.Context, fn Invocable, args cty.Value) (cty.Value, error)
}

// Importer resolves a deferred import made by the program at from.
type Importer interface {
	Import(ctx context.Context, from, target string) (cty.Value, error)
}

// ImporterFunc adapts a function to the Importer interface.
type ImporterFunc func(ctx context.Context, from, target string) (cty.Value, error)

func (f ImporterFunc) Import(ctx context.Context, from, target string) (cty.Value, error) {
	return f(ctx, from, target)
}

// Option configures an HCLEvaluator.
type Option func(*HCLEvaluator)

// WithImporter sets the resolver behind the import() builtin.
func WithImporter(imp Importer) Option {
	return func(e *HCLEvaluator) { e.importer = imp }
}

// WithFunctions adds or overrides builtins.
func WithFunctions(funcs map[string]function.Function) Option {
	return func(e *HCLEvaluator) { maps.Copy(e.funcs, funcs) }
}

// HCLEvaluator evaluates page programs written in HCL native syntax.
type HCLEvaluator struct {
	importer Importer
	funcs    map[string]function.Function
}

// NewEvaluator returns an evaluator with the default builtins.
func NewEvaluator(opts ...Option) *HCLEvaluator {
	e := &HCLEvaluator{funcs: Builtins()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type program struct {
	filename string
	locals   map[string]*hclsyntax.Attribute
	order    []string
	ret      *hclsyntax.Attribute
}

func (p *program) Filename() string { return p.filename }

func compileError(filename, msg string, cause error) error {
	b := errors.CompileError(msg).WithContext("path", filename)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b.Build()
}

// Compile parses transformed page source into an Invocable.
func (e *HCLEvaluator) Compile(filename string, src []byte) (Invocable, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, compileError(filename, "parse page program", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, compileError(filename, "unexpected body type", nil)
	}
	if len(body.Blocks) > 0 {
		return nil, errors.CompileError("page program contains an untransformed block").
			WithContext("path", filename).
			WithContext("block", body.Blocks[0].Type).
			Build()
	}

	p := &program{filename: filename, locals: make(map[string]*hclsyntax.Attribute, len(body.Attributes))}
	for name, attr := range body.Attributes {
		switch name {
		case ParamsVar:
			return nil, compileError(filename, "params is reserved and cannot be bound", nil)
		case ExportAttr:
			return nil, compileError(filename, "export must be rewritten to return before compilation", nil)
		case ReturnAttr:
			p.ret = attr
		default:
			p.locals[name] = attr
		}
	}

	order, err := evaluationOrder(p.locals)
	if err != nil {
		return nil, compileError(filename, "order bindings", err)
	}
	p.order = order
	return p, nil
}

// evaluationOrder sorts bindings so each follows the bindings it references.
// Ties are broken by name to keep evaluation deterministic.
func evaluationOrder(locals map[string]*hclsyntax.Attribute) ([]string, error) {
	indegree := make(map[string]int, len(locals))
	dependents := make(map[string][]string, len(locals))
	for name, attr := range locals {
		indegree[name] += 0
		for _, dep := range references(attr.Expr, locals) {
			if dep == name {
				return nil, cycleError([]string{name})
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(locals))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		next := dependents[name]
		sort.Strings(next)
		for _, d := range next {
			indegree[d]--
			if indegree[d] == 0 {
				queue = append(queue, d)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(locals) {
		var stuck []string
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, cycleError(stuck)
	}
	return order, nil
}

// references returns the distinct local names an expression reads.
func references(expr hclsyntax.Expression, locals map[string]*hclsyntax.Attribute) []string {
	seen := map[string]bool{}
	var out []string
	for _, tr := range expr.Variables() {
		root := tr.RootName()
		if _, ok := locals[root]; ok && !seen[root] {
			seen[root] = true
			out = append(out, root)
		}
	}
	return out
}

type cycleErr struct{ names []string }

func (c cycleErr) Error() string {
	return "binding cycle between " + strings.Join(c.names, ", ")
}

func cycleError(names []string) error { return cycleErr{names: names} }

// Invoke evaluates the program's bindings with params bound to args and
// returns the value of "return", or null when the program has none.
func (e *HCLEvaluator) Invoke(ctx context.Context, fn Invocable, args cty.Value) (cty.Value, error) {
	p, ok := fn.(*program)
	if !ok {
		return cty.NilVal, errors.InternalError("invocable was not compiled by this evaluator").Build()
	}
	if args == cty.NilVal || args.IsNull() {
		args = cty.EmptyObjectVal
	}

	vars := make(map[string]cty.Value, len(p.locals)+1)
	vars[ParamsVar] = args
	evalCtx := &hcl.EvalContext{
		Variables: vars,
		Functions: e.functions(ctx, p.filename),
	}

	for _, name := range p.order {
		if err := ctx.Err(); err != nil {
			return cty.NilVal, err
		}
		val, diags := p.locals[name].Expr.Value(evalCtx)
		if diags.HasErrors() {
			return cty.NilVal, evalError(p.filename, name, diags)
		}
		vars[name] = val
	}

	if p.ret == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	val, diags := p.ret.Expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, evalError(p.filename, ReturnAttr, diags)
	}
	return val, nil
}

// evalError reports an evaluation failure. Classified errors raised by a
// builtin, such as a failed import, are passed through unchanged.
func evalError(filename, binding string, diags hcl.Diagnostics) error {
	for _, d := range diags {
		extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](d)
		if !ok {
			continue
		}
		if err := extra.FunctionCallError(); err != nil && errors.IsClassified(err) {
			return err
		}
	}
	return errors.CompileError("evaluate binding").
		WithContext("path", filename).
		WithContext("binding", binding).
		WithCause(diags).
		Build()
}

func (e *HCLEvaluator) functions(ctx context.Context, filename string) map[string]function.Function {
	funcs := make(map[string]function.Function, len(e.funcs)+1)
	maps.Copy(funcs, e.funcs)
	funcs["import"] = importFunc(ctx, e.importer, filename)
	return funcs
}
