package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/travelcrm/backend/internal/models"
	"github.com/travelcrm/backend/internal/respond"
)

type contextKey string

const ctxIdentityKey contextKey = "identity"

// TokenValidator resolves a bearer token into the operator identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.Identity, error)
}

// RequireIdentity authenticates requests with a Bearer JWT and stores the
// operator identity (and so the tenant) in the request context.
func RequireIdentity(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				respond.Fail(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
				return
			}
			id, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil || id == nil {
				respond.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// IdentityFromCtx returns the authenticated identity or nil.
func IdentityFromCtx(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(ctxIdentityKey).(*models.Identity)
	return id
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
