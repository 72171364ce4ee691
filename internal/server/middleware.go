package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/auth"
	svcErr "github.com/pacheco20222/DogMatch-backend-sub000/internal/errors"
)

type ctxKey int

const ownerIDKey ctxKey = iota

// AuthMiddleware extracts and verifies the bearer token, storing the
// authenticated owner ID in the request context.
func AuthMiddleware(verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			ownerID, err := verifier.Verify(token)
			if err != nil {
				writeError(w, svcErr.ErrAuthenticationFailed)
				return
			}
			ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerFromContext returns the authenticated owner set by AuthMiddleware.
func OwnerFromContext(ctx context.Context) uint64 {
	ownerID, _ := ctx.Value(ownerIDKey).(uint64)
	return ownerID
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	// the socket handshake passes the token in the query; accept the same
	// shape here for parity
	return r.URL.Query().Get("token")
}
