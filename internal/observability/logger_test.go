package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLevel(tc.in))
		})
	}
}

func TestLogger_JSONFieldsAndTurnScope(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf, ServiceName: "car-search"})

	ctx := ContextWithTurnID(context.Background(), "turn-1")
	logger.WithContext(ctx).WithOperation("search").Info().
		Str("name", "BYD").
		Int("count", 2).
		Msg("search done")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "car-search", entry["service"])
	assert.Equal(t, "turn-1", entry["turn_id"])
	assert.Equal(t, "search", entry["operation"])
	assert.Equal(t, "BYD", entry["name"])
	assert.Equal(t, float64(2), entry["count"])
	assert.Equal(t, "search done", entry["message"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestTurnIDFromContext_Empty(t *testing.T) {
	assert.Equal(t, "", TurnIDFromContext(context.Background()))
}
