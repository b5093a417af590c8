package security

import (
	"net/http"
	"strconv"
	"time"
)

// HeadersConfig lists the response headers set on every request. Empty
// values are skipped.
type HeadersConfig struct {
	Static map[string]string

	// HSTS is sent only over TLS. Zero disables it.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
}

// DefaultHeadersConfig suits a JSON and PDF API: nothing may be framed,
// scripted or cached by intermediaries.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		Static: map[string]string{
			"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'self'",
			"X-Frame-Options":              "DENY",
			"X-Content-Type-Options":       "nosniff",
			"Referrer-Policy":              "no-referrer",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
			"Cache-Control":                "no-store",
		},
		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
	}
}

type HeadersMiddleware struct {
	static http.Header
	hsts   string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{static: make(http.Header, len(cfg.Static))}
	for name, value := range cfg.Static {
		if value != "" {
			h.static.Set(name, value)
		}
	}
	if cfg.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.FormatInt(int64(cfg.HSTSMaxAge/time.Second), 10)
		if cfg.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for name, values := range h.static {
			dst[name] = values
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
