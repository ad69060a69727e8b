package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"streamvault/services/credentials"
)

// RequireSession rejects requests until a backend session has been
// established through login. Handlers behind it can assume Load succeeds.
func RequireSession(creds *credentials.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Always allow OPTIONS for CORS
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if _, err := creds.Load(); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "not logged in"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
