package api

import (
	"context"
	"net/http"
	"strings"
)

type ownerKey struct{}

type tokenValidator interface {
	ValidateToken(token string) (int64, error)
}

// RequireToken rejects requests without a valid bearer token and passes the
// owner it names on in the request context.
func (h *Handler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		ownerID, err := h.tokens.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, ownerID)))
	})
}

func ownerFrom(ctx context.Context) (int64, bool) {
	ownerID, ok := ctx.Value(ownerKey{}).(int64)
	return ownerID, ok
}
