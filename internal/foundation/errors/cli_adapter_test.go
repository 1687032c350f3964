package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"unrecognized input", ValidationError("unknown extension").Build(), 2},
		{"config", ConfigError("root scope has no layout").Build(), 7},
		{"transform", TransformError("bad import").Build(), 11},
		{"compile", CompileError("bad expression").Build(), 11},
		{"filesystem", FileSystemError("read failed").Build(), 11},
		{"internal", InternalError("boom").Build(), 10},
		{"wrapped classified", fmt.Errorf("outer: %w", ConfigError("bad").Build()), 7},
		{"unclassified", stderrors.New("plain"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	err := WrapError(stderrors.New("no such file"), CategoryFileSystem, "read page").
		WithContext("path", "/src/index.md").
		Build()

	quiet := NewCLIErrorAdapter(false, slog.Default())
	assert.Equal(t, "Error: read page (/src/index.md): no such file", quiet.FormatError(err))

	verbose := NewCLIErrorAdapter(true, slog.Default())
	assert.Equal(t, "[filesystem:error] read page: no such file", verbose.FormatError(err))

	assert.Equal(t, "Error: plain", quiet.FormatError(stderrors.New("plain")))
	assert.Empty(t, quiet.FormatError(nil))
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)
	adapter.out = &out

	code := adapter.Report(ConfigError("root scope has no layout").WithContext("path", "/site").Build())

	require.Equal(t, 7, code)
	assert.Contains(t, out.String(), "root scope has no layout")
	assert.Contains(t, logs.String(), "category=config")
	assert.Contains(t, logs.String(), "path=/site")
}
