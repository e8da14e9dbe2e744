package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tc := range tests {
		t.Run("level "+tc.value, func(t *testing.T) {
			t.Setenv("ZOOPR_LOG_LEVEL", tc.value)
			assert.Equal(t, tc.want, levelFromEnv())
		})
	}
}
