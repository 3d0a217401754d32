package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type logConfig struct {
	level     string
	file      string
	maxSizeMB int
}

func (c *logConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&c.level, "log-level", "info", "debug, info, warn or error")
	fs.StringVar(&c.file, "log-file", "", "write logs to this file, rotating it as it grows")
	fs.IntVar(&c.maxSizeMB, "log-max-size", 10, "megabytes before the log file is rotated")
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// writer returns the rotating log file when one is configured and fallback
// otherwise.
func (c *logConfig) writer(fallback io.Writer) io.Writer {
	if c.file == "" {
		return fallback
	}
	return &lumberjack.Logger{
		Filename:   c.file,
		MaxSize:    c.maxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

// setup builds the process logger and installs it as the slog default.
func (c *logConfig) setup(fallback io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.level)
	if err != nil {
		return nil, err
	}
	h := slog.NewTextHandler(c.writer(fallback), &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}
