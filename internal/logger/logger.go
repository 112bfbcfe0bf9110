package logger

import (
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New builds the process logger.
// Production emits one JSON object per line with a "ts" key in the given location;
// everything else gets the colourised tint handler.
func New(w io.Writer, production bool, level string, loc *time.Location) *slog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	lvl := ParseLevel(level, production)

	var h slog.Handler
	if production {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lvl,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
				}
				return a
			},
		})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			AddSource:  true,
			TimeFormat: "15:04:05.000",
		})
	}
	return slog.New(h)
}

// Setup installs l as the default logger and routes the standard log package through it.
func Setup(l *slog.Logger) {
	slog.SetDefault(l)
	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(l.Handler(), slog.LevelInfo).Writer())
}

// ParseLevel maps a level name to a slog level. Empty input picks
// info in production and debug elsewhere.
func ParseLevel(s string, production bool) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		if production {
			return slog.LevelInfo
		}
		return slog.LevelDebug
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

// Discard returns a logger that drops everything. Useful as a default in constructors.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
