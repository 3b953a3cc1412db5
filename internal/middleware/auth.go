package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"hr-center/internal/auth"
)

type contextKey string

const (
	EmployeeIDKey contextKey = "employee_id"
	RoleKey       contextKey = "role"
)

// AuthMiddleware validates caller tokens
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the bearer token and adds the caller to the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), EmployeeIDKey, claims.EmployeeID)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetEmployeeID retrieves the caller's employee id from the request context
func GetEmployeeID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(EmployeeIDKey).(int64)
	return id, ok
}

// GetRole retrieves the caller's role from the request context
func GetRole(r *http.Request) string {
	role, _ := r.Context().Value(RoleKey).(string)
	return role
}

// WithCaller returns a copy of ctx carrying the caller, for handler tests
func WithCaller(ctx context.Context, employeeID int64, role string) context.Context {
	ctx = context.WithValue(ctx, EmployeeIDKey, employeeID)
	return context.WithValue(ctx, RoleKey, role)
}

// Helper function to respond with JSON error
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
