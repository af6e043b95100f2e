package middleware

import "net/http"

// CORS returns a middleware applying a permissive cross-origin policy.
// Outside production any origin is allowed; in production only the
// configured frontend origin is.
func CORS(frontendURL string, production bool) func(http.Handler) http.Handler {
	origin := "*"
	if production && frontendURL != "" {
		origin = frontendURL
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
