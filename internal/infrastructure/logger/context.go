package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// scope is what a request carries for logging. log already has the
// request_id and caller fields attached; the bare values are kept for
// components that log through their own logger.
type scope struct {
	log        *zap.Logger
	requestID  string
	callerID   string
	callerRole string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, s scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithContext stores log as the request logger, keeping any ids already in ctx
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	s := scopeOf(ctx)
	s.log = log
	return withScope(ctx, s)
}

// FromContext returns the request logger, or a no-op logger outside a request
func FromContext(ctx context.Context) *zap.Logger {
	if s := scopeOf(ctx); s.log != nil {
		return s.log
	}
	return zap.NewNop()
}

// WithRequestID tags the request and derives its logger from log
func WithRequestID(ctx context.Context, log *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	s := scopeOf(ctx)
	s.requestID = requestID
	s.log = log.With(zap.String("request_id", requestID))
	return withScope(ctx, s), s.log
}

// WithCaller records the authenticated account. The request logger, when
// there is one, gains caller_id and caller_role.
func WithCaller(ctx context.Context, callerID, role string) context.Context {
	s := scopeOf(ctx)
	s.callerID, s.callerRole = callerID, role
	if s.log != nil {
		s.log = s.log.With(zap.String("caller_id", callerID), zap.String("caller_role", role))
	}
	return withScope(ctx, s)
}

func RequestID(ctx context.Context) string { return scopeOf(ctx).requestID }

// Caller returns the account id and role set by WithCaller
func Caller(ctx context.Context) (id, role string) {
	s := scopeOf(ctx)
	return s.callerID, s.callerRole
}

// TraceFields are trace_id and span_id of the active span, if it is valid
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// L is the request logger with the active span attached
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx).With(TraceFields(ctx)...)
}

// For decorates a component's own logger with the request, caller and
// trace fields found in ctx
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	s := scopeOf(ctx)
	fields := TraceFields(ctx)
	if s.requestID != "" {
		fields = append(fields, zap.String("request_id", s.requestID))
	}
	if s.callerID != "" {
		fields = append(fields, zap.String("caller_id", s.callerID), zap.String("caller_role", s.callerRole))
	}
	return base.With(fields...)
}
