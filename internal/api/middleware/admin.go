package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/skitourlive/skitourlive/internal/api/models"
)

// PrincipalAdmin identifies requests authenticated with the admin token.
const PrincipalAdmin = "admin"

type principalKey struct{}

// AdminToken guards operator endpoints with a static bearer token.
// An empty token disables the endpoints entirely (every request gets 401).
func AdminToken(token string) func(http.Handler) http.Handler {
	want := sha256.Sum256([]byte(token))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeUnauthorized(w, r, "admin endpoints are disabled")
				return
			}

			const bearerPrefix = "Bearer "
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}
			if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			// Compare digests so the comparison time does not depend on length.
			got := sha256.Sum256([]byte(header[len(bearerPrefix):]))
			if subtle.ConstantTimeCompare(got[:], want[:]) != 1 {
				writeUnauthorized(w, r, "invalid admin token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, PrincipalAdmin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeUnauthorized is local to avoid an import cycle with the response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	w.Header().Set("WWW-Authenticate", `Bearer realm="skitour-admin"`)
	problem.Write(w)
}

// GetPrincipal returns the authenticated principal, or "" for anonymous requests.
func GetPrincipal(ctx context.Context) string {
	if p, ok := ctx.Value(principalKey{}).(string); ok {
		return p
	}
	return ""
}
