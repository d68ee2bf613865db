package middleware

import (
	"net/http"
	"strings"
)

// Vary returns middleware that adds Accept to the Vary header on all responses.
// Content negotiation selects JSON or CBOR for API responses, so caches must
// key on Accept. CORS adds Origin separately.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			AddVary(w.Header(), "Accept")
			next.ServeHTTP(w, r)
		})
	}
}

// AddVary appends values to the Vary header, skipping any already present.
func AddVary(h http.Header, values ...string) {
	seen := make(map[string]struct{})
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				seen[strings.ToLower(p)] = struct{}{}
			}
		}
	}
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok || v == "" {
			continue
		}
		seen[key] = struct{}{}
		h.Add("Vary", v)
	}
}
