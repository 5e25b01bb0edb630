package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientIPExtract(t *testing.T) {
	c, err := NewClientIP("203.0.113.0/24")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct public", "8.8.8.8:1234", "1.2.3.4", "", "8.8.8.8"},
		{"trusted proxy xff", "10.0.0.5:80", "1.2.3.4, 10.0.0.5", "", "1.2.3.4"},
		{"trusted proxy x-real-ip", "192.168.1.1:80", "", "5.6.7.8", "5.6.7.8"},
		{"extra trusted range", "203.0.113.9:80", "9.9.9.9", "", "9.9.9.9"},
		{"garbage xff", "127.0.0.1:80", "not-an-ip", "", "127.0.0.1"},
		{"no port", "8.8.4.4", "", "", "8.8.4.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := c.Extract(r); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestNewClientIPRejectsBadCIDR(t *testing.T) {
	if _, err := NewClientIP("nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestHeadersPrintDocumentPolicy(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report/chart", nil))
	if got := rec.Header().Get("Content-Security-Policy"); strings.Contains(got, "script-src") {
		t.Fatalf("api policy must not allow scripts: %q", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/report/detail/export.html", nil))
	if got := rec.Header().Get("Content-Security-Policy"); !strings.Contains(got, "script-src 'unsafe-inline'") {
		t.Fatalf("print policy must allow the inline print script: %q", got)
	}
}
