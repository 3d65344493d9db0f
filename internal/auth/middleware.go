package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/riskinn/riskinn-api/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type prevents other packages from reading or
// shadowing the authenticated user in the request context.
type contextKey string

const userKey contextKey = "user"

// UserLoader is the minimal store lookup the middleware needs. The sqlite
// repository satisfies it.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header,
// validates it, loads the account, and stores it in the request context.
// Requests fail with 401 when the token is missing, invalid, expired,
// issued to an account that no longer exists, or issued before the
// account's last password change.
func RequireAuth(tokens *TokenService, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				unauthorized(w, "Not authorized, no token")
				return
			}

			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				unauthorized(w, "Not authorized, invalid token")
				return
			}

			user, err := users.FindByID(r.Context(), claims.Subject)
			if err != nil {
				unauthorized(w, "User belonging to this token no longer exists")
				return
			}

			// A credential issued before the last password change is dead,
			// even if its signature and expiry still check out.
			if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
				unauthorized(w, "Password recently changed, please log in again")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the account to the context when a valid token rides
// along, and lets the request through anonymously otherwise. Used on
// endpoints open to visitors where a logged-in user's submission should
// still be attributed.
func OptionalAuth(tokens *TokenService, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByID(r.Context(), claims.Subject)
			if err != nil || (claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time)) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route to the given roles. Must run after RequireAuth.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				unauthorized(w, "Not authorized")
				return
			}
			if !allowed[user.Role] {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"forbidden","message":"role is not authorized for this route"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext retrieves the authenticated user set by RequireAuth.
// Returns (nil, false) on anonymous requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns "" when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
