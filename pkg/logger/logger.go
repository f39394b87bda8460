// Package logger provides structured logging for the admin backend.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	// TraceIDKey carries the request trace identifier.
	TraceIDKey contextKey = "trace_id"
	// AdminIDKey carries the authenticated admin user identifier.
	AdminIDKey contextKey = "admin_id"
	// RoleKey carries the authenticated admin role.
	RoleKey contextKey = "role"
)

// Logger wraps zerolog with the field-chaining surface used across the
// services. The zero value is not usable; construct with New or NewDefault.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger for the named component at the given level, writing
// JSON to the provided writer.
func New(component, level string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// NewDefault creates an info-level JSON logger for the named component. The
// LOG_LEVEL environment variable overrides the level when set.
func NewDefault(component string) *Logger {
	return New(component, os.Getenv("LOG_LEVEL"), os.Stderr)
}

// WithField returns a logger with an additional field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a logger with all provided fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// WithError returns a logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// WithContext attaches trace, admin and role identifiers from the request
// context when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	zctx := l.zl.With()
	if v, ok := ctx.Value(TraceIDKey).(string); ok && v != "" {
		zctx = zctx.Str("trace_id", v)
	}
	if v, ok := ctx.Value(AdminIDKey).(string); ok && v != "" {
		zctx = zctx.Str("admin_id", v)
	}
	if v, ok := ctx.Value(RoleKey).(string); ok && v != "" {
		zctx = zctx.Str("role", v)
	}
	return &Logger{zl: zctx.Logger()}
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }

// WithTraceID stores a trace identifier on the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID returns the trace identifier from the context, if any.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithAdmin stores the authenticated admin identifier and role on the context.
func WithAdmin(ctx context.Context, adminID, role string) context.Context {
	ctx = context.WithValue(ctx, AdminIDKey, adminID)
	if role != "" {
		ctx = context.WithValue(ctx, RoleKey, role)
	}
	return ctx
}

// GetAdminID returns the admin identifier from the context, if any.
func GetAdminID(ctx context.Context) string {
	if v, ok := ctx.Value(AdminIDKey).(string); ok {
		return v
	}
	return ""
}

// GetRole returns the admin role from the context, if any.
func GetRole(ctx context.Context) string {
	if v, ok := ctx.Value(RoleKey).(string); ok {
		return v
	}
	return ""
}
