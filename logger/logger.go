package logger

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const (
	// LevelTrace is more verbose than slog.LevelDebug, used for
	// logging RPC payloads and child process output.
	LevelTrace = slog.LevelDebug - 4

	// levelNone disables logging altogether.
	levelNone = slog.Level(math.MaxInt32)
)

const defaultConsoleTimeFormat = "15:04:05.0000"

type LogConfiguration struct {
	Level      string `yaml:"defaultLevel"`
	Format     string `yaml:"format"`
	OutputPath string `yaml:"outputPath"`
	TimeFormat string `yaml:"timeFormat"`
}

/*
New creates a logger based on configuration.
Defaults are level "info", format "text" and output "stdout".
*/
func New(cfg *LogConfiguration) (*slog.Logger, error) {
	if cfg == nil {
		cfg = &LogConfiguration{}
	}
	h, err := cfg.handler()
	if err != nil {
		return nil, fmt.Errorf("creating log handler: %w", err)
	}
	return slog.New(h), nil
}

func (cfg *LogConfiguration) handler() (slog.Handler, error) {
	out, err := cfg.output()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.logLevel(),
		ReplaceAttr: composeAttrFmt(formatTimeAttr(cfg.TimeFormat), formatLevelAttr),
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.NewTextHandler(out, opts), nil
	case "json":
		return slog.NewJSONHandler(out, opts), nil
	case "console":
		if cfg.TimeFormat == "" {
			opts.ReplaceAttr = composeAttrFmt(formatTimeAttr(defaultConsoleTimeFormat), formatLevelAttr)
		}
		return slog.NewTextHandler(out, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func (cfg *LogConfiguration) output() (io.Writer, error) {
	switch cfg.OutputPath {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard", os.DevNull:
		return io.Discard, nil
	}
	f, err := os.OpenFile(filepath.Clean(cfg.OutputPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log output file: %w", err)
	}
	return f, nil
}

func (cfg *LogConfiguration) logLevel() slog.Level {
	if cfg.OutputPath == "discard" || cfg.OutputPath == os.DevNull {
		return levelNone
	}

	lvl := strings.ToUpper(strings.TrimSpace(cfg.Level))
	switch {
	case lvl == "":
		return slog.LevelInfo
	case strings.HasPrefix(lvl, "NONE"):
		return levelNone
	case strings.HasPrefix(lvl, "TRACE"):
		// slog is not aware of the trace level, handle the offset here
		var offset slog.Level
		if err := offset.UnmarshalText([]byte("ERROR" + strings.TrimPrefix(lvl, "TRACE"))); err == nil {
			return LevelTrace + (offset - slog.LevelError)
		}
		return LevelTrace
	}

	lvl = strings.Replace(lvl, "WARNING", "WARN", 1)
	var level slog.Level
	if err := level.UnmarshalText([]byte(lvl)); err != nil {
		return slog.LevelInfo
	}
	return level
}

/*
formatTimeAttr returns a ReplaceAttr func which formats the time
attribute according to "format". Special values:
  - empty string: no formatting func is returned (ie defaults are used);
  - none: time attribute is removed from the log record.
*/
func formatTimeAttr(format string) func(groups []string, a slog.Attr) slog.Attr {
	switch format {
	case "":
		return nil
	case "none", "off":
		return func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && groups == nil {
				return slog.Attr{}
			}
			return a
		}
	default:
		return func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && groups == nil {
				t := a.Value.Time()
				if t.IsZero() {
					return a
				}
				return slog.String(slog.TimeKey, t.Format(format))
			}
			return a
		}
	}
}

// formatLevelAttr renames the levels unknown to slog.
func formatLevelAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && groups == nil {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl < slog.LevelDebug {
			return slog.String(slog.LevelKey, fmt.Sprintf("TRACE%+d", lvl-LevelTrace))
		}
	}
	return a
}

/*
composeAttrFmt combines the (non nil) ReplaceAttr funcs into single
ReplaceAttr func, funcs are applied in the order they are given.
*/
func composeAttrFmt(funcs ...func(groups []string, a slog.Attr) slog.Attr) func(groups []string, a slog.Attr) slog.Attr {
	var fns []func(groups []string, a slog.Attr) slog.Attr
	for _, fn := range funcs {
		if fn != nil {
			fns = append(fns, fn)
		}
	}

	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}

	return func(groups []string, a slog.Attr) slog.Attr {
		for _, fn := range fns {
			a = fn(groups, a)
		}
		return a
	}
}
