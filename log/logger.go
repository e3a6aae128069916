// Package log provides structured logging with invocation context.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the proxy core (structured fields)
//   - SugaredLogger: Printf-style logging for CLI surfaces
//
// Logs never go to stdout. The proxied program owns stdout.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = zapcore.WarnLevel

// Meta identifies the invocation a log line belongs to.
type Meta struct {
	// InvocationID is unique per proxied invocation.
	InvocationID string
	// Program is the proxied program name (argv[0] of the child).
	Program string
	// Caller is this process's own identity.
	Caller string
}

// Logger provides structured logging with invocation context.
type Logger struct {
	zap *zap.Logger
}

// SugaredLogger provides printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger writing JSON lines to os.Stderr at level.
func NewLogger(meta *Meta, level zapcore.Level) *Logger {
	return NewLoggerWithWriter(meta, level, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(meta *Meta, level zapcore.Level, w io.Writer) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(w),
		level,
	)

	var contextFields []zap.Field
	if meta != nil {
		if meta.InvocationID != "" {
			contextFields = append(contextFields, zap.String("invocation_id", meta.InvocationID))
		}
		if meta.Program != "" {
			contextFields = append(contextFields, zap.String("program", meta.Program))
		}
		if meta.Caller != "" {
			contextFields = append(contextFields, zap.String("caller", meta.Caller))
		}
	}

	return &Logger{zap: zap.New(core).With(contextFields...)}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// ParseLevel parses a level name such as "debug" or "warn".
// An empty string yields DefaultLevel.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return DefaultLevel, nil
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return DefaultLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Debugf logs a debug message with printf-style formatting.
func (s *SugaredLogger) Debugf(template string, args ...any) {
	s.sugar.Debugf(template, args...)
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// Errorf logs an error message with printf-style formatting.
func (s *SugaredLogger) Errorf(template string, args ...any) {
	s.sugar.Errorf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
