package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hr-center/internal/auth"
	"hr-center/internal/config"
	"hr-center/internal/middleware"
	"hr-center/internal/testutil"
)

func callerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetEmployeeID(r)
		if !ok || id != 42 {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate(t *testing.T) {
	authMw := middleware.NewAuthMiddleware(auth.NewService(&config.JWTConfig{Secret: string(testutil.JWTSecret)}))
	handler := authMw.Authenticate(callerEcho())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer " + testutil.GenerateToken(t, 42, "employee"), want: http.StatusNoContent},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer abc", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/assignments/my", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	rbac := middleware.NewRBACMiddleware()
	handler := rbac.RequireRole("hr_admin")(callerEcho())

	tests := []struct {
		name     string
		withUser bool
		role     string
		want     int
	}{
		{name: "admin", withUser: true, role: "hr_admin", want: http.StatusNoContent},
		{name: "employee", withUser: true, role: "employee", want: http.StatusForbidden},
		{name: "anonymous", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/assignments", nil)
			if tt.withUser {
				req = req.WithContext(middleware.WithCaller(req.Context(), 42, tt.role))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	cors := middleware.NewCORSMiddleware(&config.CORSConfig{
		AllowedOrigins:   []string{"https://portal.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
	})
	called := false
	handler := cors.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/assignments/my", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || called {
		t.Errorf("Expected preflight to short-circuit, got %d (called=%v)", rr.Code, called)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("Unexpected allowed methods %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/assignments/my", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" || !called {
		t.Error("Expected unknown origin to pass through without CORS headers")
	}
}

func TestLoggingAndSecurityHeaders(t *testing.T) {
	handler := middleware.LoggingMiddleware(middleware.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.GetRequestID(r.Context()) == "" {
			t.Error("Expected request id in context")
		}
		w.WriteHeader(http.StatusNotFound)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assignments/9", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("Expected request id header")
	}
	if rr.Header().Get("Cache-Control") != "no-store" || rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("Expected security headers")
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := middleware.NewRateLimiter(ctx, &config.RateLimitConfig{Enabled: true, Requests: 2, Duration: time.Minute})
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/opensign", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.254")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i, want := range []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests} {
		if got := call("203.0.113.7"); got != want {
			t.Errorf("Request %d: expected %d, got %d", i+1, want, got)
		}
	}
	if got := call("198.51.100.1"); got != http.StatusNoContent {
		t.Errorf("Expected other client to pass, got %d", got)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := middleware.NewRateLimiter(context.Background(), &config.RateLimitConfig{Enabled: false, Requests: 0})
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected disabled limiter to pass, got %d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if got := middleware.ClientIP(req); got != "192.0.2.1:5555" {
		t.Errorf("Expected remote addr, got %q", got)
	}
	req.Header.Set("X-Real-IP", "192.0.2.2")
	if got := middleware.ClientIP(req); got != "192.0.2.2" {
		t.Errorf("Expected X-Real-IP, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "192.0.2.3, 10.0.0.1")
	if got := middleware.ClientIP(req); got != "192.0.2.3" {
		t.Errorf("Expected first forwarded hop, got %q", got)
	}
}
