package httputil

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Check if origin is allowed
			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// DepartmentIDKey stores the authenticated department id in the request context.
const DepartmentIDKey contextKey = "department_id"

// TokenValidator interface for validating access tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (departmentID uuid.UUID, err error)
}

// AuthMiddleware creates authentication middleware. The authenticated
// department identity is placed in the request context; core operations
// always receive it explicitly from there, never from package state.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				// The event stream endpoint cannot set headers from
				// EventSource, so a query parameter is accepted too.
				token = r.URL.Query().Get("access_token")
			}
			if token == "" {
				Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			departmentID, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), DepartmentIDKey, departmentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDepartmentID extracts the authenticated department id from context.
// Returns uuid.Nil when the request is unauthenticated.
func GetDepartmentID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(DepartmentIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
