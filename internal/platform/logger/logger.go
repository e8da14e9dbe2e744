package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. The minimum level comes
// from ZOOPR_LOG_LEVEL (debug, info, warn, error); unset or unrecognized
// values fall back to info.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	return slog.New(handler)
}

func levelFromEnv() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("ZOOPR_LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
