package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONIncludesServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Format: "json", Output: &buf})
	l := log.With().Str("component", "orchestrator").Logger()
	l.Info().Str("drug", "aspirin").Msg("run_started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "pharma-discovery", line["service"])
	assert.Equal(t, "orchestrator", line["component"])
	assert.Equal(t, "run_started", line["message"])
	assert.Equal(t, "aspirin", line["drug"])
}

func TestLevelFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Format: "json", Output: &buf})
	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
}
