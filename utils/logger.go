package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled, printf-style logging on top of zerolog.
type Logger struct {
	zl zerolog.Logger
}

// LogConfig controls level and the optional rotating log file.
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	File       string // empty = console only
	MaxSize    int    // MB per file
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultLogConfig logs info and above to the console only.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// NewLogger creates a console Logger at info level.
func NewLogger() *Logger {
	l, _ := NewLoggerWithConfig(DefaultLogConfig())
	return l
}

// NewLoggerWithConfig builds a Logger writing to a colored console and, when
// cfg.File is set, to a lumberjack-rotated file as well.
func NewLoggerWithConfig(cfg LogConfig) (*Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, err
		}
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}

	return &Logger{zl: zerolog.New(out).Level(level).With().Timestamp().Logger()}, nil
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
