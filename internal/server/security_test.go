package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/agbru/optix/internal/profiler"
)

var exporterRoutes = []string{"/snapshot", "/healthz", "/types", "/metrics"}

func newTestServer(opts ...Option) *Server {
	opts = append([]Option{WithLogger(newTestLogger())}, opts...)
	return New(stubProfiler{state: profiler.StateReady}, staticTypes{"SystemProfiler"}, DefaultConfig(), opts...)
}

func TestDefaultSecurityConfig(t *testing.T) {
	config := DefaultSecurityConfig()
	if !config.EnableCORS {
		t.Error("EnableCORS should be true by default")
	}
	if !slices.Equal(config.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v, want [*]", config.AllowedOrigins)
	}
	if !slices.Equal(config.AllowedMethods, []string{http.MethodGet, http.MethodOptions}) {
		t.Errorf("AllowedMethods = %v, want [GET OPTIONS]", config.AllowedMethods)
	}
}

// TestRoutes_SecurityHeaders checks the hardening headers on every route,
// including error replies produced by the router itself.
func TestRoutes_SecurityHeaders(t *testing.T) {
	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"X-XSS-Protection":        "1; mode=block",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}
	h := newTestServer().Handler()

	requests := []struct{ method, path string }{
		{http.MethodPost, "/snapshot"},
		{http.MethodGet, "/nope"},
	}
	for _, path := range exporterRoutes {
		requests = append(requests, struct{ method, path string }{http.MethodGet, path})
	}

	for _, r := range requests {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			rec := do(t, h, r.method, r.path)
			for header, value := range want {
				if got := rec.Header().Get(header); got != value {
					t.Errorf("%s = %q, want %q", header, got, value)
				}
			}
		})
	}
}

// TestRoutes_JSONErrors checks that routing failures answer with the same
// JSON error envelope as handler failures.
func TestRoutes_JSONErrors(t *testing.T) {
	h := newTestServer().Handler()
	tests := []struct {
		method, path string
		code         int
		message      string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, "not found"},
		{http.MethodGet, "/snapshot/extra", http.StatusNotFound, "not found"},
		{http.MethodPost, "/snapshot", http.StatusMethodNotAllowed, "method not allowed"},
		{http.MethodDelete, "/types", http.StatusMethodNotAllowed, "method not allowed"},
		{http.MethodPut, "/healthz", http.StatusMethodNotAllowed, "method not allowed"},
		{http.MethodPost, "/metrics", http.StatusMethodNotAllowed, "method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body %q is not JSON: %v", rec.Body, err)
			}
			if body["error"] != tt.message {
				t.Errorf("error = %q, want %q", body["error"], tt.message)
			}
		})
	}
}

func TestRoutes_Preflight(t *testing.T) {
	m := NewMetrics()
	h := newTestServer(WithMetrics(m)).Handler()

	for _, path := range exporterRoutes {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, http.NoBody)
			req.Header.Set("Origin", "http://dashboard.example")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
			}
			if rec.Body.Len() != 0 {
				t.Errorf("preflight body = %q, want empty", rec.Body)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS" {
				t.Errorf("Access-Control-Allow-Methods = %q", got)
			}
		})
	}

	// Preflights are answered before request accounting.
	if got := testutil.CollectAndCount(m.requestsTotal); got != 0 {
		t.Errorf("preflights produced %d request series, want 0", got)
	}
}

func TestRoutes_CORSOrigins(t *testing.T) {
	tests := []struct {
		name       string
		config     SecurityConfig
		origin     string
		wantOrigin string
	}{
		{"disabled", SecurityConfig{AllowedOrigins: []string{"*"}}, "http://a.example", ""},
		{"wildcard without origin", DefaultSecurityConfig(), "", "*"},
		{"listed origin echoed", SecurityConfig{EnableCORS: true, AllowedOrigins: []string{"http://a.example", "http://b.example"}}, "http://b.example", "http://b.example"},
		{"unlisted origin", SecurityConfig{EnableCORS: true, AllowedOrigins: []string{"http://a.example"}}, "http://c.example", ""},
		{"listed origins without origin", SecurityConfig{EnableCORS: true, AllowedOrigins: []string{"http://a.example"}}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(WithSecurityConfig(tt.config)).Handler()
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if tt.wantOrigin == "" && rec.Header().Get("Access-Control-Allow-Methods") != "" {
				t.Error("CORS method header set for a rejected origin")
			}
		})
	}
}
