package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct connection", "203.0.113.7:5000", nil, "203.0.113.7"},
		{"untrusted proxy headers ignored", "203.0.113.7:5000", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "203.0.113.7"},
		{"trusted proxy forwarded for", "10.0.0.2:5000", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.9"}, "1.2.3.4"},
		{"trusted proxy real ip", "127.0.0.1:5000", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
		{"trusted proxy garbage header", "192.168.1.1:80", map[string]string{"X-Forwarded-For": "nope"}, "192.168.1.1"},
		{"no port", "198.51.100.1", nil, "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal api call", http.MethodGet, "/api/dashboard", "Mozilla/5.0", false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"sql in query", http.MethodGet, "/api/expenses?category=1%20union%20select", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
	if d.Suspicious() != 5 {
		t.Errorf("Suspicious() = %d, want 5", d.Suspicious())
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("missing header %s", name)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.5:1234"
	r.Header.Set("X-Forwarded-For", "4.4.4.4")
	if got := d.ExtractClientIP(r); got != "4.4.4.4" {
		t.Errorf("ExtractClientIP() = %q", got)
	}
}
