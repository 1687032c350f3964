package compiler

import (
	"bytes"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/zclconf/go-cty/cty"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// Options tunes markdown compilation.
type Options struct {
	// Unsafe passes raw HTML in the markdown through to the output.
	Unsafe bool
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
	// Footnotes enables the footnote extension.
	Footnotes bool
}

// DefaultOptions returns the options the page factory compiles with.
func DefaultOptions() Options {
	return Options{Unsafe: true, Footnotes: true}
}

// Heading is one entry of a compiled document's table of contents.
type Heading struct {
	ID    string
	Level int
	Text  string
}

func newMarkdown(opts Options) goldmark.Markdown {
	exts := []goldmark.Extender{extension.GFM}
	if opts.Footnotes {
		exts = append(exts, extension.Footnote)
	}
	var rendererOpts []renderer.Option
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, gmhtml.WithUnsafe())
	}
	if opts.HardWraps {
		rendererOpts = append(rendererOpts, gmhtml.WithHardWraps())
	}
	return goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
	)
}

// Compile converts a markdown body into page-program source. The emitted
// program binds frontmatter to a literal object holding "toc" (and "heading"
// when the body has a level-one heading) and returns the rendered markup as
// a raw document.
func Compile(body []byte, opts Options) ([]byte, error) {
	md := newMarkdown(opts)
	doc := md.Parser().Parse(text.NewReader(body))

	toc := Headings(doc, body)

	var out bytes.Buffer
	if err := md.Renderer().Render(&out, body, doc); err != nil {
		return nil, errors.WrapError(err, errors.CategoryCompile, "render markdown").Fatal().Build()
	}

	entries := make([]cty.Value, 0, len(toc))
	fm := map[string]cty.Value{}
	for _, h := range toc {
		entries = append(entries, cty.ObjectVal(map[string]cty.Value{
			"id":    cty.StringVal(h.ID),
			"level": cty.NumberIntVal(int64(h.Level)),
			"text":  cty.StringVal(h.Text),
		}))
		if h.Level == 1 {
			if _, seen := fm["heading"]; !seen {
				fm["heading"] = cty.StringVal(h.Text)
			}
		}
	}
	fm["toc"] = cty.EmptyTupleVal
	if len(entries) > 0 {
		fm["toc"] = cty.TupleVal(entries)
	}

	f := hclwrite.NewEmptyFile()
	root := f.Body()
	root.SetAttributeValue("frontmatter", cty.ObjectVal(fm))
	root.SetAttributeRaw("return", hclwrite.TokensForFunctionCall("raw",
		hclwrite.TokensForValue(cty.StringVal(out.String())),
	))
	return f.Bytes(), nil
}

// Headings lists the headings of a parsed document in source order.
func Headings(doc gmast.Node, source []byte) []Heading {
	var out []Heading
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		entry := Heading{Level: h.Level, Text: plainText(h, source)}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				entry.ID = string(b)
			}
		}
		out = append(out, entry)
		return gmast.WalkSkipChildren, nil
	})
	return out
}

func plainText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	var collect func(gmast.Node)
	collect = func(node gmast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *gmast.Text:
				buf.Write(t.Value(source))
				if t.SoftLineBreak() {
					buf.WriteByte(' ')
				}
			case *gmast.String:
				buf.Write(t.Value)
			default:
				collect(c)
			}
		}
	}
	collect(n)
	return buf.String()
}
