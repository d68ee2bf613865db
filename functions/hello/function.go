// Package hello serves the greeting endpoint as an HTTP Cloud Function.
package hello

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
)

// RFC3339Millis matches the main project's timestamp format.
const RFC3339Millis = "2006-01-02T15:04:05.000Z"

func init() {
	functions.HTTP("Hello", helloHandler)
}

// Response mirrors the server's greeting payload.
type Response struct {
	Message     string   `json:"message"`
	Timestamp   string   `json:"timestamp"`
	Environment string   `json:"environment"`
	TechStack   []string `json:"tech_stack"`
}

var now = time.Now

func helloHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	resp := Response{
		Message:     "Hello from Node.js Development Environment!",
		Timestamp:   now().UTC().Format(RFC3339Millis),
		Environment: "development",
		TechStack:   []string{"TypeScript", "React", "Next.js", "Tailwind CSS"},
	}

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}
