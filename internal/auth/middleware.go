package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/regsense/assistant-gateway/internal/httputil"
)

// Middleware authenticates requests via Bearer token against the key store.
// With no keys configured auth is stubbed out and every request passes.
func Middleware(store KeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store.Empty() {
				next.ServeHTTP(w, r)
				return
			}

			reqID := w.Header().Get("X-Request-ID")

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteAuthError(w, reqID, "Missing Authorization header. Use: Authorization: Bearer <api-key>")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader || token == "" {
				httputil.WriteAuthError(w, reqID, "Invalid Authorization format. Use: Authorization: Bearer <api-key>")
				return
			}

			meta, ok := store.Lookup(HashKey(token))
			if !ok {
				slog.Warn("auth failed: key not found", "key_prefix", KeyPrefix(token))
				httputil.WriteAuthError(w, reqID, "Invalid API key")
				return
			}

			ctx := ContextWithInfo(r.Context(), &Info{KeyName: meta.Name})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
