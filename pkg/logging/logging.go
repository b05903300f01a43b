// Package logging defines the sink that pipeline components report through.
// Components never hold a concrete logger; they hold a Sink so tests can
// capture output and hosts can route it wherever they like.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Severity int

const (
	Debug Severity = iota
	Info
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	}
	return "unknown"
}

// Sink accepts log events from the pipeline. context carries optional
// surrounding source lines (script failures, malformed style rules) and may
// be empty.
type Sink interface {
	Log(sev Severity, msg string, context string)
}

// ZapSink adapts a zap logger to the Sink interface.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps an existing zap logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

// NewDefaultSink builds a sink writing human-readable output to stderr at
// the given minimum level.
func NewDefaultSink(level Severity) *ZapSink {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		// Development config only fails on bad output paths; fall back to a
		// no-op logger rather than making callers handle construction errors.
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (z *ZapSink) Log(sev Severity, msg string, context string) {
	fields := []zap.Field{}
	if context != "" {
		fields = append(fields, zap.String("source", context))
	}
	switch sev {
	case Debug:
		z.logger.Debug(msg, fields...)
	case Info:
		z.logger.Info(msg, fields...)
	case Warn:
		z.logger.Warn(msg, fields...)
	default:
		z.logger.Error(msg, fields...)
	}
}

func zapLevel(s Severity) zapcore.Level {
	switch s {
	case Debug:
		return zapcore.DebugLevel
	case Info:
		return zapcore.InfoLevel
	case Warn:
		return zapcore.WarnLevel
	}
	return zapcore.ErrorLevel
}

// Nop is a Sink that discards everything.
type Nop struct{}

func (Nop) Log(Severity, string, string) {}

// Capture records events in memory for tests. Safe for use from the
// deferred-image goroutines.
type Capture struct {
	mu     sync.Mutex
	Events []Event
}

type Event struct {
	Severity Severity
	Message  string
	Context  string
}

func (c *Capture) Log(sev Severity, msg string, context string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Events = append(c.Events, Event{Severity: sev, Message: msg, Context: context})
}

// All returns a copy of the recorded events.
func (c *Capture) All() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.Events))
	copy(out, c.Events)
	return out
}
