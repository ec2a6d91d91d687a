package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "WARN", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	l.Info().Msg("dropped")
	l.Warn().Str("field", "customer").Msg("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "customer", entry["field"])
	assert.Equal(t, "kept", entry["message"])
}

func TestNewConsoleDefault(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Output: &buf})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, l.GetLevel())

	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}
