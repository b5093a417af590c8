// Package trace tags each request with an ID and logs how it ended.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	applog "roadrich/internal/log"
)

// HeaderRequestID carries the request ID back to the client.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// Middleware assigns request IDs and logs every request's outcome.
type Middleware struct {
	clientIP func(*http.Request) string
	logger   *applog.StructuredLogger
	total    atomic.Int64
}

// NewMiddleware builds the tracer. clientIP may be nil, in which case no
// address is logged.
func NewMiddleware(clientIP func(*http.Request) string, logger *applog.Logger) *Middleware {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &Middleware{
		clientIP: clientIP,
		logger:   applog.NewStructuredLogger(logger.WithComponent(applog.ComponentHTTP)),
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		m.total.Add(1)

		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}

		id := GenerateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		w.Header().Set(HeaderRequestID, id)
		slog.DebugContext(ctx, "HTTP request started", "request_id", id, "method", r.Method, "path", r.URL.Path)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(ctx))
		m.logger.LogHTTPEnd(ctx, r, sw.status, time.Since(began), ip)
	})
}

// Total returns the number of requests seen.
func (m *Middleware) Total() int64 {
	return m.total.Load()
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// GenerateRequestID returns "req_" followed by 16 hex digits.
func GenerateRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "req_" + strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return "req_" + hex.EncodeToString(b[:])
}

// GetRequestID returns the ID assigned to the request, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
