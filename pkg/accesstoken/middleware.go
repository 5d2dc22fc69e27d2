package accesstoken

import (
	"context"
	"net/http"
	"strings"
)

// grantContextKey keys the validated grant in the request context.
type grantContextKey struct{}

// GrantFromContext returns the grant attached by Middleware, if any.
func GrantFromContext(ctx context.Context) (*Grant, bool) {
	grant, ok := ctx.Value(grantContextKey{}).(*Grant)
	return grant, ok
}

// Middleware validates the Authorization: Bearer header against the
// registry and attaches the resulting grant to the request context. All
// validation failures produce an identical 401.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		grant, err := s.Validate(r.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), grantContextKey{}, grant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope wraps a handler so it runs only when the request's grant
// carries the given scope.
func RequireScope(scope Scope, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		grant, ok := GrantFromContext(r.Context())
		if !ok || !grantHasScope(grant, scope) {
			http.Error(w, "Insufficient scope", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func grantHasScope(grant *Grant, scope Scope) bool {
	for _, s := range grant.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
