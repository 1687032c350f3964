package frontmatter

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Delimiter is the line that opens and closes a frontmatter block.
const Delimiter = "---"

// Style captures the newline convention of a document.
type Style struct {
	Newline string
}

// Split separates the frontmatter block of a markup document from its body.
//
// The document is cut at lines consisting solely of `---`. When that yields
// at least three segments the second segment is the frontmatter and the body
// is everything after the second delimiter. Text before the first delimiter
// must be blank; otherwise the delimiters are thematic breaks and had is false.
func Split(content []byte) (fm []byte, body []byte, had bool, style Style) {
	style = detectStyle(content)

	first, firstEnd, ok := nextDelimiter(content, 0)
	if !ok || len(bytes.TrimSpace(content[:first])) != 0 {
		return nil, content, false, style
	}
	second, secondEnd, ok := nextDelimiter(content, firstEnd)
	if !ok {
		return nil, content, false, style
	}
	return content[firstEnd:second], content[secondEnd:], true, style
}

// nextDelimiter finds the next delimiter line at or after from. It returns the
// offset of the line start and the offset just past its line terminator.
func nextDelimiter(content []byte, from int) (start, end int, ok bool) {
	pos := from
	for pos <= len(content) {
		lineEnd := bytes.IndexByte(content[pos:], '\n')
		next := len(content)
		line := content[pos:]
		if lineEnd >= 0 {
			line = content[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		}
		if string(bytes.TrimSuffix(line, []byte("\r"))) == Delimiter {
			return pos, next, true
		}
		if lineEnd < 0 {
			break
		}
		pos = next
	}
	return 0, 0, false
}

// ParseYAML parses raw YAML frontmatter (without delimiters) into a map.
// The result is never nil.
func ParseYAML(fm []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(fm)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectStyle(content []byte) Style {
	newline := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		newline = "\r\n"
	}
	return Style{Newline: newline}
}
