package health

import (
	"encoding/json"
	"net/http"
)

// Response is the payload for the health endpoint.
type Response struct {
	Status string `json:"status"`
}

// ReadyFunc reports whether the process can serve traffic.
type ReadyFunc func() bool

// Handler returns the liveness handler. The status is "healthy" while ready
// reports true and 503 "starting" otherwise. A nil ready is always healthy.
// The server renders the page before it starts listening, so there ready only
// guards against a renderer that holds no document.
func Handler(ready ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, Response{Status: "healthy"}
		if ready != nil && !ready() {
			status, body = http.StatusServiceUnavailable, Response{Status: "starting"}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		if r.Method == http.MethodHead {
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}
}
