package config

import (
    "io"
    "log/slog"
    "strings"
    "time"

    "github.com/lmittmann/tint"
)

// NewLogger builds the application logger.  Text output goes through tint
// for readable local logs; "json" switches to the structured handler used
// in deployed environments.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
    lvl := parseLevel(level)
    var h slog.Handler
    if strings.EqualFold(format, "json") {
        h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
    } else {
        h = tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})
    }
    return slog.New(h)
}

func parseLevel(s string) slog.Level {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "debug":
        return slog.LevelDebug
    case "warn", "warning":
        return slog.LevelWarn
    case "error":
        return slog.LevelError
    default:
        return slog.LevelInfo
    }
}
