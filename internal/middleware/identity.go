package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkordes/travel-journal/internal/domain"
)

type identityKey struct{}

// NewIdentity returns a middleware that reads the requester identity from the
// headers set by the upstream identity provider. Requests without a user
// header are rejected with 401. A missing or unknown role is treated as
// viewer.
func NewIdentity(userHeader, roleHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get(userHeader))
			if user == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing "+userHeader+" header")
				return
			}
			who := domain.Identity{UserID: user, Role: parseRole(r.Header.Get(roleHeader))}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), who)))
		})
	}
}

func parseRole(v string) string {
	switch role := strings.ToLower(strings.TrimSpace(v)); role {
	case domain.RoleCreator, domain.RoleAdmin:
		return role
	default:
		return domain.RoleViewer
	}
}

// WithIdentity returns a copy of ctx carrying who.
func WithIdentity(ctx context.Context, who domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, who)
}

// IdentityFrom returns the identity stored by NewIdentity.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	who, ok := ctx.Value(identityKey{}).(domain.Identity)
	return who, ok
}

// writeError writes the API error envelope. Handlers have their own richer
// version; middleware only ever needs code and message.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
