package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type contextKey string

const (
	IdentityKey     contextKey = "identity"
	authErrorKey    contextKey = "auth_error"
	AccessTokenName            = "access_token"
	bearerPrefix               = "Bearer "
)

// Authenticate resolves the caller identity from a bearer token or the
// access_token cookie. Requests without a valid token pass through
// anonymously; the verification error is kept for RequireIdentity.
func Authenticate(auth ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" || auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.ParseToken(token)
			if err != nil {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authErrorKey, err)))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireIdentity rejects anonymous requests and requests whose token did
// not verify.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err, ok := r.Context().Value(authErrorKey).(error); ok {
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}
		if _, ok := IdentityFrom(r.Context()); !ok {
			http.Error(w, "Unauthorized: missing caller identity", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok && !identity.IsZero()
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	if cookie, err := r.Cookie(AccessTokenName); err == nil {
		return cookie.Value
	}
	return ""
}
