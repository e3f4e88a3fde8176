package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRateLimiter_GlobalLimit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, 100, 100)
	defer rl.Stop()
	h := rl.Limit(okHandler())

	if code := hit(h, "192.168.1.1:1234"); code != http.StatusOK {
		t.Errorf("first request: got %d", code)
	}
	if code := hit(h, "192.168.1.1:1234"); code != http.StatusOK {
		t.Errorf("second request (burst): got %d", code)
	}
	if code := hit(h, "192.168.1.2:1234"); code != http.StatusTooManyRequests {
		t.Errorf("third request should be globally limited, got %d", code)
	}
}

func TestRateLimiter_PerIPLimit(t *testing.T) {
	rl := NewRateLimiter(1000, 1000, 0.001, 2)
	defer rl.Stop()
	h := rl.Limit(okHandler())

	hit(h, "10.0.0.1:1")
	hit(h, "10.0.0.1:2")
	if code := hit(h, "10.0.0.1:3"); code != http.StatusTooManyRequests {
		t.Errorf("IP1 third request should be limited, got %d", code)
	}
	if code := hit(h, "10.0.0.2:1"); code != http.StatusOK {
		t.Errorf("IP2 should have its own bucket, got %d", code)
	}
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(1000, 1000, 10, 10)
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiterFor("10.0.0.1")
	now = now.Add(4 * time.Minute)
	rl.limiterFor("10.0.0.2")
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.perIP["10.0.0.1"]; ok {
		t.Error("idle bucket should be swept")
	}
	if _, ok := rl.perIP["10.0.0.2"]; !ok {
		t.Error("fresh bucket should survive")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.168.1.1:1234", "192.168.1.1"},
		{"ipv6 remote", nil, "[::1]:8080", "::1"},
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:1", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:1", "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
