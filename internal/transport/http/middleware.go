package http

import (
	"context"
	"net/http"
	"strings"

	"escape-room-service/internal/auth"
	"escape-room-service/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware resolves the bearer token of REST calls to an identity.
type AuthMiddleware struct {
	verifier auth.Verifier
}

func NewAuthMiddleware(verifier auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireIdentity rejects requests without a valid token and sends the client back to the entry view.
func (m *AuthMiddleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeUnauthenticated(w, "missing authorization header")
			return
		}
		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			writeUnauthenticated(w, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFrom extracts the identity stored by RequireIdentity.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

func writeUnauthenticated(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error":    message,
		"navigate": domain.Navigation{Path: domain.PathEntry, Replace: true},
	})
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
