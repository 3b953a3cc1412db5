// Package logger configures the process-wide slog JSON logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const timeFormat = "2006-01-02 15:04:05"

// maskedKeys hold email addresses; only the domain is logged
var maskedKeys = map[string]bool{
	"to":    true,
	"email": true,
}

// Config holds logger configuration
type Config struct {
	Level string
}

// Setup initializes the global logger with the specified configuration
func Setup(cfg Config) {
	slog.SetDefault(New(os.Stdout, cfg))
}

// New builds a JSON logger writing to w
func New(w io.Writer, cfg Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: replaceAttr,
	}))
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch {
	case a.Key == slog.TimeKey && len(groups) == 0:
		return slog.String(a.Key, a.Value.Time().Format(timeFormat))
	case maskedKeys[a.Key] && a.Value.Kind() == slog.KindString:
		return slog.String(a.Key, maskEmail(a.Value.String()))
	}
	return a
}

// maskEmail keeps the domain of an address, e.g. ***@example.com
func maskEmail(addr string) string {
	_, domain, ok := strings.Cut(addr, "@")
	if !ok || domain == "" {
		return "[REDACTED_EMAIL]"
	}
	return "***@" + domain
}

// parseLevel accepts debug, info, warn and error in any case; anything else is info
func parseLevel(levelStr string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		return slog.LevelInfo
	}
	return level
}
