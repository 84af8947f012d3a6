// Package authmw provides HTTP middleware for bearer token authentication
// on the dashboard and notification endpoints. The Twilio webhook routes do
// not use it; they are gated at the network layer.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerToken returns middleware that validates the Authorization header
// contains a Bearer token matching the expected value. Comparison uses
// constant-time equality to prevent timing side-channel attacks.
//
// An empty expected token fails closed: every request is rejected rather
// than letting a missing config value disable auth.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				reject(w, `{"error":"authentication not configured"}`)
				return
			}

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				reject(w, `{"error":"missing or malformed authorization header"}`)
				return
			}

			got := []byte(auth[len("Bearer "):])
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				reject(w, `{"error":"invalid token"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(body + "\n"))
}
