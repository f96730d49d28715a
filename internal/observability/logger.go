// Package observability provides structured logging for the car search services.
package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger wraps zerolog with turn and operation scoping.
type Logger struct {
	zl zerolog.Logger
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level       string
	Format      string // json or console
	Output      io.Writer
	ServiceName string
}

// NewLogger creates a new Logger with the given configuration.
func NewLogger(cfg LogConfig) *Logger {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		zl = zerolog.New(out)
	}

	zl = zl.Level(ParseLevel(cfg.Level)).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()

	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything. Used by tests and library callers
// that do not care about output.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Debug starts a debug event.
func (l *Logger) Debug() *LogEvent { return &LogEvent{evt: l.zl.Debug()} }

// Info starts an info event.
func (l *Logger) Info() *LogEvent { return &LogEvent{evt: l.zl.Info()} }

// Warn starts a warning event.
func (l *Logger) Warn() *LogEvent { return &LogEvent{evt: l.zl.Warn()} }

// Error starts an error event.
func (l *Logger) Error() *LogEvent { return &LogEvent{evt: l.zl.Error()} }

// Fatal starts a fatal event; Msg exits the process.
func (l *Logger) Fatal() *LogEvent { return &LogEvent{evt: l.zl.Fatal()} }

// WithTurn returns a logger tagged with a conversation turn id.
func (l *Logger) WithTurn(turnID string) *Logger {
	if turnID == "" {
		return l
	}
	return &Logger{zl: l.zl.With().Str("turn_id", turnID).Logger()}
}

// WithOperation returns a logger tagged with the operation name.
func (l *Logger) WithOperation(op string) *Logger {
	return &Logger{zl: l.zl.With().Str("operation", op).Logger()}
}

// WithContext returns a logger carrying the turn id stored in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l.WithTurn(TurnIDFromContext(ctx))
}

// LogEvent is a log entry under construction.
type LogEvent struct {
	evt *zerolog.Event
}

func (e *LogEvent) Str(key, val string) *LogEvent {
	e.evt = e.evt.Str(key, val)
	return e
}

func (e *LogEvent) Int(key string, val int) *LogEvent {
	e.evt = e.evt.Int(key, val)
	return e
}

func (e *LogEvent) Float64(key string, val float64) *LogEvent {
	e.evt = e.evt.Float64(key, val)
	return e
}

func (e *LogEvent) Bool(key string, val bool) *LogEvent {
	e.evt = e.evt.Bool(key, val)
	return e
}

func (e *LogEvent) Strs(key string, val []string) *LogEvent {
	e.evt = e.evt.Strs(key, val)
	return e
}

func (e *LogEvent) Dur(key string, val time.Duration) *LogEvent {
	e.evt = e.evt.Dur(key, val)
	return e
}

func (e *LogEvent) Err(err error) *LogEvent {
	e.evt = e.evt.Err(err)
	return e
}

func (e *LogEvent) Interface(key string, val interface{}) *LogEvent {
	e.evt = e.evt.Interface(key, val)
	return e
}

// Msg sends the event.
func (e *LogEvent) Msg(msg string) { e.evt.Msg(msg) }

// Msgf sends the event with a formatted message.
func (e *LogEvent) Msgf(format string, args ...interface{}) { e.evt.Msgf(format, args...) }

// Send sends the event without a message.
func (e *LogEvent) Send() { e.evt.Send() }

// ParseLevel converts a config level string to a zerolog level. Unknown values map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

type contextKey string

const turnIDKey contextKey = "turn_id"

// ContextWithTurnID stores the turn id in ctx.
func ContextWithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnIDKey, turnID)
}

// TurnIDFromContext returns the turn id stored in ctx, or "".
func TurnIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(turnIDKey).(string); ok {
		return s
	}
	return ""
}
