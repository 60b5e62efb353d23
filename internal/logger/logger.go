package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging with UPPER_SNAKE field keys.
type Logger struct {
	zl *zap.Logger
}

// New creates a JSON logger writing to stdout at info level.
func New() *Logger {
	return NewWithLevel(os.Stdout, "info")
}

// NewWithWriter creates a logger with a custom writer at debug level.
func NewWithWriter(w io.Writer) *Logger {
	return NewWithLevel(w, "debug")
}

// NewWithLevel creates a logger writing to w. Unknown levels fall back to info.
func NewWithLevel(w io.Writer, level string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "TIME"
	encCfg.LevelKey = "LEVEL"
	encCfg.MessageKey = "MESSAGE"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(ParseLevel(level)),
	)
	return &Logger{zl: zap.New(core)}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// ParseLevel maps a LOG_LEVEL value to a zap level.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...Field) {
	l.zl.Info(msg, toZap(fields)...)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...Field) {
	l.zl.Error(msg, toZap(fields)...)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...Field) {
	l.zl.Warn(msg, toZap(fields)...)
}

// Debug logs debug messages
func (l *Logger) Debug(msg string, fields ...Field) {
	l.zl.Debug(msg, toZap(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out = append(out, zap.String(f.Key, err.Error()))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new field (shorthand)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Common field constructors
func Action(value string) Field    { return F("ACTION", value) }
func Status(value string) Field    { return F("STATUS", value) }
func Count(value int) Field        { return F("COUNT", value) }
func Error(value error) Field      { return F("ERROR", value) }
func Reason(value string) Field    { return F("REASON", value) }
func BookingID(value string) Field { return F("BOOKING_ID", value) }
func Room(value string) Field      { return F("ROOM", value) }
func Event(value string) Field     { return F("EVENT", value) }
func Attempt(value int) Field      { return F("ATTEMPT", value) }
func URL(value string) Field       { return F("URL", value) }
