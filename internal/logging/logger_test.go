package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	long := strings.Repeat("ż", 60)
	args := map[string]any{
		"query":       long,
		"short":       "kept",
		"max_results": 3.0,
	}

	got := Summarize(args)

	summary, ok := got["query"].(string)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(summary), "multi-byte characters must not be split")
	assert.Equal(t, strings.Repeat("ż", 50)+"...", summary)
	assert.Equal(t, "kept", got["short"])
	assert.Equal(t, 3.0, got["max_results"])
	assert.Equal(t, long, args["query"], "input is not modified")
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLogger := New(Options{Level: "warn", Format: "json", Out: &buf})
	defer closeLogger()

	logger.Info().Msg("hidden")
	logger.Warn().Str("collection", "docs").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "docs", entry["collection"])
	assert.Equal(t, "warn", entry["level"])
}

func TestLoggerTravelsInContext(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Format: "json", Out: &buf})

	ctx := WithLogger(context.Background(), logger)
	FromCtx(ctx).Info().Msg("from_context")

	assert.Contains(t, buf.String(), "from_context")
}
