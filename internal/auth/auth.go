// Package auth resolves the authenticated owner for each request.
//
// Identity is an external collaborator: this service sits behind a gateway
// that has already authenticated the caller, so the default implementation
// simply trusts the forwarded identity header. Handlers read the owner from
// the request context and never derive ownership from request payloads.
package auth

import (
	"context"
	"errors"
	"net/http"
)

// ErrUnauthenticated is returned when no owner identity can be resolved.
var ErrUnauthenticated = errors.New("auth: missing identity")

// OwnerHeader is the header the upstream gateway sets after authentication.
const OwnerHeader = "X-User-ID"

// Identity resolves the authenticated owner of a request.
type Identity interface {
	Authenticate(r *http.Request) (owner string, err error)
}

// HeaderIdentity trusts the gateway-forwarded identity header.
type HeaderIdentity struct{}

// Authenticate returns the forwarded owner ID.
func (HeaderIdentity) Authenticate(r *http.Request) (string, error) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		return "", ErrUnauthenticated
	}
	return owner, nil
}

type ctxKey struct{}

// Middleware authenticates every request with the given Identity and stores
// the owner in the request context. Unauthenticated requests get 401.
func Middleware(id Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := id.Authenticate(r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// WithOwner returns a context carrying the authenticated owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// Owner returns the authenticated owner from the context, or "" if absent.
func Owner(ctx context.Context) string {
	owner, _ := ctx.Value(ctxKey{}).(string)
	return owner
}
