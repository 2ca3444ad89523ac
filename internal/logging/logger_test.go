package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, levelFromString(in).Level(), "level %q", in)
	}
}

func TestNewLoggerToWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn")
	logger.Info("dropped")
	logger.Warn("kept", "ride", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "kept", rec["msg"])
	require.EqualValues(t, 7, rec["ride"])
}
