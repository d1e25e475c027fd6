package middleware

import (
	"net/http"
	"strings"
)

// FrameAncestors returns middleware that allows the listed origins to embed
// responses in an iframe. It sets a frame-ancestors Content-Security-Policy
// and removes X-Frame-Options, which would otherwise override it in older
// browsers. An empty list leaves responses untouched.
func FrameAncestors(origins []string) func(http.Handler) http.Handler {
	policy := "frame-ancestors " + strings.Join(origins, " ")

	return func(next http.Handler) http.Handler {
		if len(origins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", policy)
			h.Del("X-Frame-Options")
			next.ServeHTTP(w, r)
		})
	}
}
