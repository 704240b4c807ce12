// Package auth secures the coffeeshop agents.
//
// Every service in the shop speaks bearer-token JWT:
//
//  1. JWTValidator verifies inbound tokens against the identity
//     provider's JWKS endpoint.
//  2. HTTP middleware extracts and validates the Authorization header,
//     storing Claims in the request context.
//  3. Interceptor bridges those Claims into a2a-go's CallContext so
//     agent executors can identify the caller.
//  4. TokenSource acquires outbound tokens (client credentials flow or
//     a static secret) for calls to downstream agents and tools.
package auth

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// claimsContextKey stores validated claims on a request context.
const claimsContextKey contextKey = "coffeeshop_auth_claims"

// Claims holds the validated identity of a caller.
type Claims struct {
	// Subject is the unique identifier for the caller (sub claim).
	Subject string `json:"sub"`

	// Email is the caller's email address, when the provider sets one.
	Email string `json:"email,omitempty"`

	// Role is the caller's role for authorization decisions.
	Role string `json:"role,omitempty"`

	// Custom contains any additional claims not mapped to struct fields.
	Custom map[string]any `json:"-"`
}

// GetClaim retrieves a custom claim by key.
func (c *Claims) GetClaim(key string) (any, bool) {
	if c.Custom == nil {
		return nil, false
	}
	val, ok := c.Custom[key]
	return val, ok
}

// HasAnyRole reports whether the caller holds any of the given roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}
	return false
}

// ClaimsFromContext extracts claims from a context.
// Returns nil if no claims are present.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}

// ContextWithClaims returns a new context carrying the given claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
