package compiler

import (
	"bytes"
	"regexp"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// Document value attribute names.
const (
	AttrTag      = "tag"
	AttrAttrs    = "attrs"
	AttrChildren = "children"
	AttrRaw      = "raw"
)

var tagName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

// Element builds an element document value.
func Element(tag string, attrs cty.Value, children []cty.Value) cty.Value {
	if attrs.IsNull() {
		attrs = cty.EmptyObjectVal
	}
	kids := cty.EmptyTupleVal
	if len(children) > 0 {
		kids = cty.TupleVal(children)
	}
	return cty.ObjectVal(map[string]cty.Value{
		AttrTag:      cty.StringVal(tag),
		AttrAttrs:    attrs,
		AttrChildren: kids,
	})
}

// Raw builds a document value whose markup is emitted verbatim.
func Raw(markup string) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{AttrRaw: cty.StringVal(markup)})
}

// Render converts a document value into markup.
//
// Strings render as escaped text, numbers and booleans as their text form,
// sequences as fragments and null as nothing. Objects carry either "raw"
// markup or a "tag" with optional "attrs" and "children".
func Render(doc cty.Value) (string, error) {
	nodes, err := toNodes(doc, cty.Path{})
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", errors.WrapError(err, errors.CategoryRender, "render document").Build()
		}
	}
	return buf.String(), nil
}

func invalid(path cty.Path, msg string) error {
	return errors.RenderError(msg).WithContext("value_path", formatPath(path)).Build()
}

func toNodes(v cty.Value, path cty.Path) ([]*html.Node, error) {
	if !v.IsKnown() {
		return nil, invalid(path, "document value is not known")
	}
	if v.IsNull() {
		return nil, nil
	}
	v, _ = v.Unmark()
	ty := v.Type()

	switch {
	case ty == cty.String:
		return []*html.Node{{Type: html.TextNode, Data: v.AsString()}}, nil
	case ty == cty.Number || ty == cty.Bool:
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, invalid(path, err.Error())
		}
		return []*html.Node{{Type: html.TextNode, Data: s.AsString()}}, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var out []*html.Node
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, elem := it.Element()
			nodes, err := toNodes(elem, path.Index(cty.NumberIntVal(int64(i))))
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		return objectNodes(v, path)
	default:
		return nil, invalid(path, "unsupported document value type "+ty.FriendlyName())
	}
}

func objectNodes(v cty.Value, path cty.Path) ([]*html.Node, error) {
	fields := v.AsValueMap()

	if raw, ok := fields[AttrRaw]; ok {
		if raw.IsNull() || raw.Type() != cty.String {
			return nil, invalid(path.GetAttr(AttrRaw), "raw markup must be a string")
		}
		return []*html.Node{{Type: html.RawNode, Data: raw.AsString()}}, nil
	}

	tag, ok := fields[AttrTag]
	if !ok {
		return nil, invalid(path, "document object needs a tag or raw attribute")
	}
	if tag.IsNull() || tag.Type() != cty.String || !tagName.MatchString(tag.AsString()) {
		return nil, invalid(path.GetAttr(AttrTag), "invalid element tag")
	}

	name := tag.AsString()
	el := &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name))}

	if attrs, ok := fields[AttrAttrs]; ok && !attrs.IsNull() {
		list, err := elementAttrs(attrs, path.GetAttr(AttrAttrs))
		if err != nil {
			return nil, err
		}
		el.Attr = list
	}

	if children, ok := fields[AttrChildren]; ok {
		nodes, err := toNodes(children, path.GetAttr(AttrChildren))
		if err != nil {
			return nil, err
		}
		for _, c := range nodes {
			el.AppendChild(c)
		}
	}
	return []*html.Node{el}, nil
}

func elementAttrs(attrs cty.Value, path cty.Path) ([]html.Attribute, error) {
	ty := attrs.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, invalid(path, "element attrs must be an object")
	}
	fields := attrs.AsValueMap()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]html.Attribute, 0, len(keys))
	for _, k := range keys {
		val := fields[k]
		if val.IsNull() {
			continue
		}
		if val.Type() == cty.Bool {
			if val.True() {
				out = append(out, html.Attribute{Key: k})
			}
			continue
		}
		s, err := convert.Convert(val, cty.String)
		if err != nil {
			return nil, invalid(path.GetAttr(k), "attribute values must be strings, numbers or booleans")
		}
		out = append(out, html.Attribute{Key: k, Val: s.AsString()})
	}
	return out, nil
}

func formatPath(path cty.Path) string {
	var buf bytes.Buffer
	buf.WriteString("$")
	for _, step := range path {
		switch s := step.(type) {
		case cty.GetAttrStep:
			buf.WriteString("." + s.Name)
		case cty.IndexStep:
			if s.Key.Type() == cty.Number {
				buf.WriteString("[" + s.Key.AsBigFloat().Text('f', -1) + "]")
			} else if s.Key.Type() == cty.String {
				buf.WriteString("[" + s.Key.AsString() + "]")
			}
		}
	}
	return buf.String()
}
