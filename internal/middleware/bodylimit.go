// Package middleware provides shared HTTP middleware utilities.
package middleware

import "net/http"

// BodyLimit caps request body size. Upload routes pass a larger limit than
// the JSON endpoints.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
