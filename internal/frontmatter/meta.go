package frontmatter

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// FromHTMLMeta collects frontmatter from the <meta name=".." content=".."> tags
// of a markup document. Later tags overwrite earlier ones with the same name.
func FromHTMLMeta(content []byte) map[string]any {
	fields := map[string]any{}
	z := html.NewTokenizer(bytes.NewReader(content))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return fields
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var key, value string
			var hasContent bool
			for {
				k, v, more := z.TagAttr()
				switch strings.ToLower(string(k)) {
				case "name":
					key = string(v)
				case "content":
					value, hasContent = string(v), true
				}
				if !more {
					break
				}
			}
			if key != "" && hasContent {
				fields[key] = value
			}
		}
	}
}
