package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wishchain/wishchain-backend/internal/app"
	"github.com/wishchain/wishchain-backend/internal/domain"
)

type contextKey string

const principalContextKey contextKey = "sessionPrincipal"

// SessionVerifier validates a bearer token.
type SessionVerifier interface {
	Verify(token string) (*app.SessionPrincipal, error)
}

// SessionAuthMiddleware requires a valid bearer session token and stores the
// caller in the request context.
func SessionAuthMiddleware(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Authorization required")
				return
			}
			token, ok := bearerToken(authHeader)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose session role differs from role.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authorization required")
				return
			}
			if principal.Role != role {
				writeError(w, http.StatusForbidden, forbiddenMessage(role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext returns the authenticated caller.
func PrincipalFromContext(ctx context.Context) (*app.SessionPrincipal, bool) {
	principal, ok := ctx.Value(principalContextKey).(*app.SessionPrincipal)
	return principal, ok && principal != nil
}

// UserIDFromContext returns the authenticated user's id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return principal.UserID, true
}

func bearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func forbiddenMessage(role domain.Role) string {
	switch role {
	case domain.RoleDonor:
		return "Only donors can grant wishes."
	case domain.RoleWisher:
		return "Only wishers can create wishes."
	default:
		return "Forbidden"
	}
}
