package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/colsp-platform/colsp/internal/api"
	"github.com/colsp-platform/colsp/internal/domain"
)

type contextKey string

const IdentityKey contextKey = "identity"

// SessionValidator resolves a bearer token to a caller identity.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (domain.Identity, error)
}

// SessionAuth authenticates requests via Authorization: Bearer tokens and
// stores the resolved identity in the request context.
func SessionAuth(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			identity, err := validator.ValidateSession(r.Context(), token)
			if err != nil {
				if err == domain.ErrInvalidSession {
					api.Error(w, http.StatusUnauthorized, "invalid or expired session")
					return
				}
				api.Error(w, http.StatusInternalServerError, "failed to validate session")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity returns the authenticated identity from context. The zero
// Identity is returned for unauthenticated requests.
func GetIdentity(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(IdentityKey).(domain.Identity)
	return identity
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
