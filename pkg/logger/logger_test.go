package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info().Msg("should be filtered")
	log.Warn().Msg("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestNewWithWriter_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Debug().Str("query", "SELECT 1").Msg("executed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "SELECT 1", entry["query"])
	assert.Equal(t, "executed", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
}
