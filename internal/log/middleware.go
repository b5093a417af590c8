package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type loggerKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, or one wrapping slog.Default
// when ctx carries none.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok && l != nil {
		return l
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware puts logger on every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// RequestIDMiddleware tags the context logger with the ID requestID
// reports. Requests without an ID keep the untagged logger.
func RequestIDMiddleware(requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			tagged := FromContext(r.Context()).With(FieldRequestID, id)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), tagged)))
		})
	}
}

// StructuredLogger writes the request and failure records shared by the
// HTTP layer and the workers.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func statusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogHTTPEnd records a finished request. 4xx log at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	f := NewFields().
		WithComponent(ComponentHTTP).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
		WithHTTPResponse(status, elapsed.Milliseconds()).
		WithClientIP(clientIP)
	sl.logger.Fields(ctx, statusLevel(status), "HTTP request completed", f)
}

// LogError records err at error level. fields may be nil.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.Fields(ctx, slog.LevelError, msg,
		fields.WithComponent(component).WithOperation(operation).WithError(err))
}
