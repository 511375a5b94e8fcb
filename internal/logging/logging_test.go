package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", "json", &buf)
	l.Debug().Int("move", 4).Msg("search complete")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "search complete", entry["message"])
	require.EqualValues(t, 4, entry["move"])
}

func TestLevelFilteringAndFallback(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", "json", &buf)
	l.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	buf.Reset()
	l = New("loud", "json", &buf)
	l.Debug().Msg("dropped")
	l.Info().Msg("kept")
	require.Contains(t, buf.String(), "kept")
	require.NotContains(t, buf.String(), "dropped")
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", "console", &buf)
	l.Info().Str("game", "abc").Msg("game created")
	require.Contains(t, buf.String(), "game created")
	require.Contains(t, buf.String(), "abc")
}
