package httpx

import (
	"crypto/subtle"
	"net/http"
)

const AdminPasswordHeader = "X-Admin-Password"

// WithAdminGate guards the payments/balances routes behind a shared admin
// password carried on a request header. The password is a plain string
// compared against configuration; this mirrors how the protected sections of
// the dashboard already work and is a known weakness, not an auth system.
// An empty configured password locks the gated routes entirely.
func WithAdminGate(password string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" {
				http.Error(w, "protected section is not configured", http.StatusForbidden)
				return
			}
			supplied := r.Header.Get(AdminPasswordHeader)
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(password)) != 1 {
				http.Error(w, "incorrect password", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
