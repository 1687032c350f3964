package frontmatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSerializeYAML_EmptyMap_ReturnsEmpty(t *testing.T) {
	out, err := SerializeYAML(map[string]any{}, Style{Newline: "\n"})
	require.NoError(t, err)
	require.Equal(t, "", string(out))
}

func TestSerializeYAML_DeterministicOrder(t *testing.T) {
	fields := map[string]any{
		"b": "two",
		"a": "one",
		"c": 3,
		"d": 1.5,
	}

	out1, err := SerializeYAML(fields, Style{})
	require.NoError(t, err)
	out2, err := SerializeYAML(fields, Style{})
	require.NoError(t, err)
	require.Equal(t, string(out1), string(out2))
	require.Equal(t, "a: one\nb: two\nc: 3\nd: 1.5\n", string(out1))
}

func TestSerializeYAML_NewlineStyle_CRLF(t *testing.T) {
	out, err := SerializeYAML(map[string]any{"a": "one"}, Style{Newline: "\r\n"})
	require.NoError(t, err)
	require.Equal(t, "a: one\r\n", string(out))
}

func TestSerializeYAML_NestedStructures(t *testing.T) {
	fields := map[string]any{
		"outer": map[string]any{"b": 2, "a": 1},
		"toc":   []any{map[string]any{"level": 2, "id": "intro"}},
		"date":  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	out, err := SerializeYAML(fields, Style{})
	require.NoError(t, err)
	require.Equal(t, "date: 2024-01-02T03:04:05Z\nouter:\n  a: 1\n  b: 2\ntoc:\n  - id: intro\n    level: 2\n", string(out))
}

func TestSerializeYAML_UnsupportedType(t *testing.T) {
	_, err := SerializeYAML(map[string]any{"ch": make(chan int)}, Style{})
	require.Error(t, err)
}
