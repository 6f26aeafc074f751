package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// InitSlog installs a text handler on stderr as the default logger. Debug
// mode lowers the level to include debug records.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// InitSlogLevel is InitSlog with a named level ("DEBUG", "INFO", "WARNING",
// "ERROR", case-insensitive; unknown names fall back to info).
func InitSlogLevel(name string) {
	var level slog.Level
	switch strings.ToUpper(name) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARNING", "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
