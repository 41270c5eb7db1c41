package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/validation"
)

func TestParseFormat(t *testing.T) {
	f, err := parseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = parseFormat("xml")
	assert.Equal(t, ferrors.ConfigInvalid, ferrors.CodeOf(err))
}

func TestPrintResult(t *testing.T) {
	defer func(prev string) { formatFlag = prev }(formatFlag)

	var buf bytes.Buffer
	formatFlag = string(FormatJSON)
	require.NoError(t, printResult(&buf, map[string]interface{}{"b": 1, "a": 0.1234567}, nil))
	assert.Equal(t, "{\n  \"a\": 0.123457,\n  \"b\": 1\n}\n", buf.String())

	buf.Reset()
	formatFlag = string(FormatHuman)
	require.NoError(t, printResult(&buf, "ignored", func(w io.Writer) { _, _ = fmt.Fprint(w, "human") }))
	assert.Equal(t, "human", buf.String())
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		format   OutputFormat
		contains []string
	}{
		{
			name:     "coded human",
			err:      fmt.Errorf("validate: %w", ferrors.Newf(ferrors.SnapshotStale, "assignments.yml is stale")),
			format:   FormatHuman,
			contains: []string{"Error: validate: [SNAPSHOT_STALE]", "Try: featuremap validate --autocorrect"},
		},
		{
			name:     "validation human",
			err:      &validation.Error{Errors: []string{"first", "second"}},
			format:   FormatHuman,
			contains: []string{"first\n\nsecond"},
		},
		{
			name:     "validation json",
			err:      &validation.Error{Errors: []string{"first"}},
			format:   FormatJSON,
			contains: []string{`"code": "CONSISTENCY"`, `"errors": [`},
		},
		{
			name:     "plain json",
			err:      errors.New("boom"),
			format:   FormatJSON,
			contains: []string{`"code": "INTERNAL_ERROR"`, `"message": "boom"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err, tt.format)
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestNewLogger_TeesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "featuremap.log")
	var console bytes.Buffer

	logger, closeFn, err := newLogger(&console, 0, false, logFile, "debug")
	require.NoError(t, err)
	logger.Debug("Resolved feature assignments", "files", 3)
	logger.Warn("Skipping metrics for file", "file", "a.rb")
	closeFn()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[debug] Resolved feature assignments | files=3")
	assert.Contains(t, lines[1], "[warn] Skipping metrics for file | file=a.rb")

	assert.NotContains(t, console.String(), "Resolved feature assignments")
	assert.Contains(t, console.String(), "Skipping metrics for file")
}

func TestNewLogger_Quiet(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := newLogger(&console, 2, true, "", "info")
	require.NoError(t, err)
	logger.Error("should not appear")
	assert.Empty(t, console.String())
}
