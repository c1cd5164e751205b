package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"studiobook/internal/apperr"
	"studiobook/libs/auth"
	"studiobook/libs/httpx"
)

// Identity is the verified caller extracted from the bearer token.
type Identity struct {
	UID   string
	Email string
	Name  string
}

type ctxKey int

const identityKey ctxKey = iota

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// WithIdentity resolves the optional Authorization header. Requests
// without one pass through anonymous; a supplied but invalid token is
// rejected outright.
func WithIdentity(verifier TokenVerifier, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == header || token == "" {
				writeError(w, logger, apperr.New(apperr.Unauthenticated, "malformed authorization header"))
				return
			}
			claims, err := verifier.Verify(token)
			if err != nil {
				writeError(w, logger, apperr.New(apperr.Unauthenticated, "invalid token"))
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, Identity{
				UID:   claims.Sub,
				Email: claims.Email,
				Name:  claims.Name,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the verified caller, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
