package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		userAgent  string
		suspicious bool
	}{
		{"clean analysis request", http.MethodGet, "/api/analysis?year=2024", "Mozilla/5.0", false},
		{"curl is a legitimate client", http.MethodGet, "/api/years", "curl/8.4.0", false},
		{"scripted import", http.MethodPost, "/api/ledger/import", "python-requests/2.31", false},
		{"path traversal", http.MethodGet, "/api/../../etc/passwd", "Mozilla/5.0", true},
		{"injection in query", http.MethodGet, "/api/analysis?year=1%20union%20select", "Mozilla/5.0", true},
		{"dotfile probe", http.MethodGet, "/.env", "Mozilla/5.0", true},
		{"scanner agent", http.MethodGet, "/api/years", "sqlmap/1.7", true},
		{"unusual method", "TRACE", "/api/years", "Mozilla/5.0", true},
		{"oversized url", http.MethodGet, "/api/analysis?year=" + strings.Repeat("9", 600), "Mozilla/5.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var metrics securityMetrics
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.userAgent)

			if got := detectSuspiciousRequest(req, &metrics); got != tt.suspicious {
				t.Fatalf("detectSuspiciousRequest = %v, want %v", got, tt.suspicious)
			}
			count := atomic.LoadInt64(&metrics.suspiciousRequests)
			if tt.suspicious && count != 1 {
				t.Fatalf("suspiciousRequests = %d, want 1", count)
			}
			if !tt.suspicious && count != 0 {
				t.Fatalf("suspiciousRequests = %d, want 0", count)
			}
		})
	}
}

func TestDetectSuspiciousForwardingChain(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/years", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2, 3.3.3.3, 4.4.4.4, 5.5.5.5, 6.6.6.6, 7.7.7.7")

	if !detectSuspiciousRequest(req, nil) {
		t.Fatal("overlong forwarding chain must be flagged")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(3)
	defer rl.stop()

	var metrics securityMetrics
	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1", &metrics) {
			t.Fatalf("request %d within the limit was rejected", i+1)
		}
	}
	if rl.allow("10.0.0.1", &metrics) {
		t.Fatal("request over the limit was allowed")
	}
	if atomic.LoadInt64(&metrics.rateLimitHits) != 1 {
		t.Fatalf("rateLimitHits = %d, want 1", metrics.rateLimitHits)
	}

	// Other clients are tracked independently.
	if !rl.allow("10.0.0.2", &metrics) {
		t.Fatal("fresh client was rejected")
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.9:1234", "", "203.0.113.9"},
		{"trusted proxy forwards", "127.0.0.1:1234", "203.0.113.9", "203.0.113.9"},
		{"untrusted proxy ignored", "203.0.113.50:1234", "198.51.100.1", "203.0.113.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/years", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Fatalf("extractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
