package middleware

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuth guards endpoints with a single shared credential. The password is
// checked against a bcrypt hash so the plaintext never lives in config. An
// empty user disables the check (local development).
func BasicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user == "" {
				next.ServeHTTP(w, r)
				return
			}
			gotUser, gotPassword, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(gotPassword)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="wastetrack"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
