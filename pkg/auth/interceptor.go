package auth

import (
	"context"

	"github.com/a2aproject/a2a-go/a2asrv"
)

// Interceptor bridges the HTTP auth middleware to a2a-go's CallInterceptor.
// Middleware validates the JWT and stores Claims in the request context;
// Before reads those Claims and sets CallContext.User so executors can
// identify the caller.
type Interceptor struct {
	// RequireAuth when true rejects unauthenticated requests.
	// When false, unauthenticated requests proceed with a nil User.
	RequireAuth bool
}

// NewInterceptor creates a new auth interceptor.
func NewInterceptor(requireAuth bool) *Interceptor {
	return &Interceptor{RequireAuth: requireAuth}
}

// Before runs before each a2a-go request handler method.
func (i *Interceptor) Before(ctx context.Context, callCtx *a2asrv.CallContext, req *a2asrv.Request) (context.Context, error) {
	claims := ClaimsFromContext(ctx)

	if claims != nil {
		callCtx.User = &AuthenticatedUser{claims: claims}
	} else if i.RequireAuth {
		// The HTTP middleware should have rejected already; this is a
		// safety net in case the handler is mounted without it.
		return ctx, ErrUnauthorized
	}

	return ctx, nil
}

// After runs after each a2a-go request handler method.
func (i *Interceptor) After(ctx context.Context, callCtx *a2asrv.CallContext, resp *a2asrv.Response) error {
	return nil
}

var _ a2asrv.CallInterceptor = (*Interceptor)(nil)

// AuthenticatedUser implements a2asrv.User on top of validated Claims.
type AuthenticatedUser struct {
	claims *Claims
}

// Name returns the caller's subject.
func (u *AuthenticatedUser) Name() string {
	if u.claims == nil {
		return ""
	}
	return u.claims.Subject
}

// Authenticated always reports true for this type.
func (u *AuthenticatedUser) Authenticated() bool {
	return true
}

// Claims returns the underlying claim data.
func (u *AuthenticatedUser) Claims() *Claims {
	return u.claims
}

var _ a2asrv.User = (*AuthenticatedUser)(nil)
