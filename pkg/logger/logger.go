// Package logger wraps slog with the fields the monitor attaches to every
// line: the component, and for request-scoped work the request id and the
// datacenter being looked at.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey struct{}

// requestFields travel with a request's context.
type requestFields struct {
	requestID  string
	datacenter string
}

func fieldsFrom(ctx context.Context) requestFields {
	f, _ := ctx.Value(ctxKey{}).(requestFields)
	return f
}

// Logger is a slog.Logger with helpers for the monitor's standard fields.
type Logger struct {
	*slog.Logger
}

// Options selects where and how a Logger writes.
type Options struct {
	Level slog.Level
	JSON  bool
	// Output defaults to stdout.
	Output io.Writer
}

// NewWithOptions builds a Logger. Source locations are added at debug level.
func NewWithOptions(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	hopts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.Level <= slog.LevelDebug}

	var h slog.Handler = slog.NewTextHandler(out, hopts)
	if opts.JSON {
		h = slog.NewJSONHandler(out, hopts)
	}
	return &Logger{Logger: slog.New(h)}
}

// New returns a stdout Logger.
func New(level slog.Level, json bool) *Logger {
	return NewWithOptions(Options{Level: level, JSON: json})
}

// Default is an INFO JSON logger, used until configuration is loaded.
func Default() *Logger {
	return New(slog.LevelInfo, true)
}

// Discard drops everything.
func Discard() *Logger {
	return NewWithOptions(Options{Level: slog.LevelError, Output: io.Discard})
}

// ParseLevel maps LOG_LEVEL values to slog levels. Anything unrecognised is
// INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// From wraps a plain slog.Logger, falling back to slog.Default for nil.
func From(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{Logger: base}
}

// WithContext adds the request fields stored in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	f := fieldsFrom(ctx)
	var args []any
	if f.requestID != "" {
		args = append(args, "request_id", f.requestID)
	}
	if f.datacenter != "" {
		args = append(args, "datacenter", f.datacenter)
	}
	if len(args) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

func (l *Logger) with(key string, value any) *Logger {
	return &Logger{Logger: l.Logger.With(key, value)}
}

// WithRequestID adds a request_id field.
func (l *Logger) WithRequestID(requestID string) *Logger { return l.with("request_id", requestID) }

// WithComponent adds a component field naming the subsystem that logs.
func (l *Logger) WithComponent(component string) *Logger { return l.with("component", component) }

// WithError adds err's message. The error value itself is not kept.
func (l *Logger) WithError(err error) *Logger { return l.with("error", err.Error()) }

// ContextWithRequestID stores the request id for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	f := fieldsFrom(ctx)
	f.requestID = requestID
	return context.WithValue(ctx, ctxKey{}, f)
}

// ContextWithDatacenter stores the datacenter a request is scoped to.
func ContextWithDatacenter(ctx context.Context, name string) context.Context {
	f := fieldsFrom(ctx)
	f.datacenter = name
	return context.WithValue(ctx, ctxKey{}, f)
}

// RequestIDFromContext returns the stored request id or "".
func RequestIDFromContext(ctx context.Context) string {
	return fieldsFrom(ctx).requestID
}
