package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the log file
const (
	DefaultMaxSizeMB  = 5
	DefaultMaxBackups = 10
	DefaultMaxAgeDays = 30
)

// Logger wraps zap.Logger with launcher-specific child constructors.
type Logger struct {
	*zap.Logger
}

// Config defines logger configuration.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool

	// File receives JSON entries through a size-rotated writer in addition
	// to stdout. Empty disables the file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FromSettings builds a Config from the daemon's logging section.
// Development mode defaults to debug level; an explicit level wins.
func FromSettings(level string, development bool, file string) Config {
	cfg := Config{
		Level:       "info",
		Development: development,
		File:        file,
		MaxSizeMB:   DefaultMaxSizeMB,
		MaxBackups:  DefaultMaxBackups,
		MaxAgeDays:  DefaultMaxAgeDays,
	}
	if development {
		cfg.Level = "debug"
	}
	if level != "" {
		cfg.Level = level
	}
	return cfg
}

// New creates a logger writing to stdout and, when configured, a rotated file.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	enabled := zap.NewAtomicLevelAt(level)

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEncoder(cfg.Development), zapcore.Lock(os.Stdout), enabled),
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(cfg.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(rotated), enabled))
	}

	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}
	return &Logger{Logger: zap.New(zapcore.NewTee(cores...), opts...)}, nil
}

// NewDefault creates an info-level JSON logger on stdout, or a no-op logger
// if that cannot be built.
func NewDefault() *Logger {
	logger, err := New(FromSettings("", false, ""))
	if err != nil {
		return NewNop()
	}
	return logger
}

// NewNop returns a logger that discards everything, for tests and optional wiring.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Component returns a child logger named after a launcher component.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// WithApp returns a child logger that tags every entry with the app id.
func (l *Logger) WithApp(appID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("app_id", appID))}
}

// parseLevel converts string level to zapcore.Level.
func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

func stdoutEncoder(development bool) zapcore.Encoder {
	if !development {
		return zapcore.NewJSONEncoder(jsonEncoderConfig())
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zapcore.NewConsoleEncoder(enc)
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	return enc
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
