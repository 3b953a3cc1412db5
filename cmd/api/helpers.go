package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"hr-center/internal/middleware"
	"hr-center/internal/models"
)

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

type vaultHealth interface {
	Health(ctx context.Context) error
}

func protected(authMw *middleware.AuthMiddleware, h http.HandlerFunc) http.Handler {
	return authMw.Authenticate(h)
}

func adminOnly(authMw *middleware.AuthMiddleware, rbacMw *middleware.RBACMiddleware, h http.HandlerFunc) http.Handler {
	return authMw.Authenticate(
		rbacMw.RequireRole(models.RoleHRAdmin)(h),
	)
}

// healthHandler reports database and, when configured, Vault reachability
func healthHandler(version string, db healthChecker, v vaultHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			slog.Error("Database health check failed", "error", err)
			writeHealth(w, http.StatusServiceUnavailable, `{"status":"unhealthy","database":"error"}`)
			return
		}
		if v != nil {
			if err := v.Health(ctx); err != nil {
				slog.Error("Vault health check failed", "error", err)
				writeHealth(w, http.StatusServiceUnavailable, `{"status":"unhealthy","vault":"error"}`)
				return
			}
		}
		writeHealth(w, http.StatusOK, `{"status":"healthy","version":"`+version+`"}`)
	}
}

func writeHealth(w http.ResponseWriter, code int, body string) {
	w.WriteHeader(code)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}
