package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Middleware creates an HTTP middleware that validates bearer tokens.
// Requests without a valid token receive 401 Unauthorized.
//
// Valid claims are stored in the request context and can be retrieved
// with ClaimsFromContext.
func Middleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			tokenString := ExtractBearer(authHeader)
			if tokenString == "" {
				writeAuthError(w, "Invalid Authorization format, expected: Bearer <token>", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(r.Context(), tokenString)
			if err != nil {
				writeAuthError(w, fmt.Sprintf("Invalid token: %s", err.Error()), http.StatusUnauthorized)
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MiddlewareWithExclusions skips auth for the listed paths. Agent card
// discovery and health endpoints stay public so clients can find the
// service before they authenticate.
func MiddlewareWithExclusions(validator TokenValidator, excludedPaths []string) func(http.Handler) http.Handler {
	excludeSet := make(map[string]bool, len(excludedPaths))
	for _, path := range excludedPaths {
		excludeSet[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := strings.TrimSuffix(r.URL.Path, "/")
			if excludeSet[path] || excludeSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			Middleware(validator)(next).ServeHTTP(w, r)
		})
	}
}

// ExtractBearer returns the token portion of an Authorization header.
// Supports "Bearer <token>" and raw token formats.
func ExtractBearer(authHeader string) string {
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, message)
}
