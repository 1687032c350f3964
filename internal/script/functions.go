package script

import (
	"context"

	"github.com/hashicorp/hcl/v2/ext/tryfunc"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/scopebuild/internal/compiler"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// Builtins returns the functions available to every page program, except
// import, which is bound per invocation.
func Builtins() map[string]function.Function {
	return map[string]function.Function{
		"h":     ElementFunc,
		"raw":   RawFunc,
		"text":  TextFunc,
		"title": TitleFunc,
		"try":   tryfunc.TryFunc,
		"can":   tryfunc.CanFunc,

		"upper":      stdlib.UpperFunc,
		"lower":      stdlib.LowerFunc,
		"join":       stdlib.JoinFunc,
		"split":      stdlib.SplitFunc,
		"format":     stdlib.FormatFunc,
		"concat":     stdlib.ConcatFunc,
		"length":     stdlib.LengthFunc,
		"merge":      stdlib.MergeFunc,
		"keys":       stdlib.KeysFunc,
		"values":     stdlib.ValuesFunc,
		"lookup":     stdlib.LookupFunc,
		"contains":   stdlib.ContainsFunc,
		"coalesce":   stdlib.CoalesceFunc,
		"element":    stdlib.ElementFunc,
		"flatten":    stdlib.FlattenFunc,
		"reverse":    stdlib.ReverseListFunc,
		"slice":      stdlib.SliceFunc,
		"sort":       stdlib.SortFunc,
		"range":      stdlib.RangeFunc,
		"min":        stdlib.MinFunc,
		"max":        stdlib.MaxFunc,
		"replace":    stdlib.ReplaceFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"jsonencode": stdlib.JSONEncodeFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"formatdate": stdlib.FormatDateFunc,
	}
}

// ElementFunc is h(tag, attrs, children...).
var ElementFunc = function.New(&function.Spec{
	Description: "Builds an element document value.",
	Params: []function.Parameter{
		{Name: "tag", Type: cty.String},
		{Name: "attrs", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true},
	},
	VarParam: &function.Parameter{
		Name:             "children",
		Type:             cty.DynamicPseudoType,
		AllowNull:        true,
		AllowDynamicType: true,
	},
	Type: function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return compiler.Element(args[0].AsString(), args[1], args[2:]), nil
	},
})

// RawFunc is raw(markup). A null argument yields null so optional slots can
// be passed straight through.
var RawFunc = function.New(&function.Spec{
	Description: "Marks a string as verbatim markup.",
	Params: []function.Parameter{
		{Name: "markup", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true},
	},
	Type: function.StaticReturnType(cty.DynamicPseudoType),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		v := args[0]
		if v.IsNull() {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		if v.Type().IsObjectType() && v.Type().HasAttribute(compiler.AttrRaw) {
			return v, nil
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return cty.NilVal, function.NewArgErrorf(0, "raw markup must be a string")
		}
		return compiler.Raw(s.AsString()), nil
	},
})

// TextFunc is text(value): the string form of a scalar.
var TextFunc = function.New(&function.Spec{
	Description: "Converts a scalar to its text form.",
	Params: []function.Parameter{
		{Name: "value", Type: cty.DynamicPseudoType, AllowNull: true, AllowDynamicType: true},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if args[0].IsNull() {
			return cty.StringVal(""), nil
		}
		s, err := convert.Convert(args[0], cty.String)
		if err != nil {
			return cty.NilVal, function.NewArgErrorf(0, "%s has no text form", args[0].Type().FriendlyName())
		}
		return s, nil
	},
})

// TitleFunc is title(s) using Unicode title casing.
var TitleFunc = function.New(&function.Spec{
	Description: "Title-cases a string.",
	Params:      []function.Parameter{{Name: "str", Type: cty.String}},
	Type:        function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		return cty.StringVal(cases.Title(language.Und).String(args[0].AsString())), nil
	},
})

// importFunc binds import(path) for one invocation of the program at filename.
func importFunc(ctx context.Context, imp Importer, filename string) function.Function {
	return function.New(&function.Spec{
		Description: "Resolves a deferred import.",
		Params:      []function.Parameter{{Name: "path", Type: cty.String}},
		Type:        function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			target := args[0].AsString()
			if imp == nil {
				return cty.NilVal, errors.CompileError("no importer configured for deferred import").
					WithContext("path", filename).
					WithContext("import", target).
					Build()
			}
			return imp.Import(ctx, filename, target)
		},
	})
}
