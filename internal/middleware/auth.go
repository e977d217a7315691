package middleware

import (
	"crypto/subtle"
	"net/http"

	"wayfarer/internal/httputil"
)

// APIKeyHeader carries the shared write secret.
const APIKeyHeader = "X-API-Key"

// APIKey gates mutating methods behind a shared-secret header. Reads stay
// open. An empty configured key disables the gate entirely.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}
			provided := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				httputil.RespondJSON(w, http.StatusUnauthorized, httputil.ErrorBody{
					Error: httputil.ErrorDetail{Kind: "Unauthorized", Message: "missing or invalid API key"},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
