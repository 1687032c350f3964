package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, _ := Split(input)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\n---\nBody text")

	fm, body, had, _ := Split(input)
	require.True(t, had)
	require.Equal(t, []byte("title: Hello\n"), fm)
	require.Equal(t, []byte("Body text"), body)

	fields, err := ParseYAML(fm)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"title": "Hello"}, fields)
}

func TestSplit_OnlyOneDelimiter_IsNotFrontmatter(t *testing.T) {
	input := []byte("---\nkey: value\n# Title\n")

	fm, body, had, _ := Split(input)
	require.False(t, had)
	require.Nil(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_LaterThematicBreaksStayInBody(t *testing.T) {
	input := []byte("---\na: 1\n---\nintro\n---\nmore\n")

	fm, body, had, _ := Split(input)
	require.True(t, had)
	require.Equal(t, []byte("a: 1\n"), fm)
	require.Equal(t, []byte("intro\n---\nmore\n"), body)
}

func TestSplit_TextBeforeFirstDelimiter_IsNotFrontmatter(t *testing.T) {
	input := []byte("intro\n---\nnot: yaml\n---\nrest\n")

	_, body, had, _ := Split(input)
	require.False(t, had)
	require.Equal(t, input, body)
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\r\nkey: value\r\n---\r\n# Title\r\n")

	fm, body, had, style := Split(input)
	require.True(t, had)
	require.Equal(t, "\r\n", style.Newline)
	require.Equal(t, []byte("key: value\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyFrontmatterBlock(t *testing.T) {
	fm, body, had, _ := Split([]byte("---\n---\n# Title\n"))
	require.True(t, had)
	require.Empty(t, fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestParseYAML(t *testing.T) {
	fields, err := ParseYAML([]byte("title: A\ntags: [x, y]\n"))
	require.NoError(t, err)
	require.Equal(t, "A", fields["title"])
	require.Equal(t, []any{"x", "y"}, fields["tags"])

	empty, err := ParseYAML([]byte("  \n"))
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	_, err = ParseYAML([]byte("title: [unterminated\n"))
	require.Error(t, err)
}

func TestFromHTMLMeta(t *testing.T) {
	doc := []byte(`<!doctype html><html><head>
<meta charset="utf-8">
<meta name="title" content="About">
<meta name="description" content="Who we are"/>
<meta property="og:title" content="ignored">
</head><body><slot></slot></body></html>`)

	fields := FromHTMLMeta(doc)
	require.Equal(t, map[string]any{"title": "About", "description": "Who we are"}, fields)
	require.Empty(t, FromHTMLMeta([]byte("<p>no meta</p>")))
}
