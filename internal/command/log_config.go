package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Qfusion/qfusion-sub007/internal/config"
)

// logConfig holds resolved logging configuration for commands that run the
// bot core.
type logConfig struct {
	level   slog.Level
	format  string
	logFile io.WriteCloser // nil if no file logging
}

// resolveLogConfig resolves log configuration from flags and config. Flag
// values take precedence, then the environment and config file, then the
// schema defaults. The caller must call close on the result.
func resolveLogConfig(flagLevel, flagFormat, flagPath string, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	resolve := func(flagValue, key string) string {
		if flagValue != "" || cfg == nil {
			return flagValue
		}
		return schema.Resolve(cfg, key)
	}

	var lc logConfig
	switch levelStr := resolve(flagLevel, config.KeyLogLevel); strings.ToLower(levelStr) {
	case "debug":
		lc.level = slog.LevelDebug
	case "info", "":
		lc.level = slog.LevelInfo
	case "warn":
		lc.level = slog.LevelWarn
	case "error":
		lc.level = slog.LevelError
	default:
		return lc, fmt.Errorf("invalid log level: %s", levelStr)
	}

	switch lc.format = strings.ToLower(resolve(flagFormat, config.KeyLogFormat)); lc.format {
	case "":
		lc.format = "auto"
	case "auto", "text", "json":
	default:
		return lc, fmt.Errorf("invalid log format: %s", lc.format)
	}

	if logPath := resolve(flagPath, config.KeyLogFile); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return lc, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		lc.logFile = f
	}

	return lc, nil
}

// logger builds the handler for the resolved config. A log file always gets
// JSON. Otherwise "auto" picks text when stderr is a terminal.
func (lc logConfig) logger(stderr io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.level}
	if lc.logFile != nil {
		return slog.New(slog.NewJSONHandler(lc.logFile, opts))
	}
	text := lc.format == "text"
	if lc.format == "auto" {
		text = isTerminal(stderr)
	}
	if text {
		return slog.New(slog.NewTextHandler(stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(stderr, opts))
}

func (lc logConfig) close() {
	if lc.logFile != nil {
		_ = lc.logFile.Close()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
