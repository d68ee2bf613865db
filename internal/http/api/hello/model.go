package hello

import "github.com/janisto/devenv-playground/internal/platform/timeutil"

// Data is the greeting payload. Every field is always present.
type Data struct {
	Message     string        `json:"message"     doc:"Greeting message"                       example:"Hello from Node.js Development Environment!"`
	Timestamp   timeutil.Time `json:"timestamp"   doc:"Generation time, UTC with milliseconds"`
	Environment string        `json:"environment" doc:"Runtime environment"                    example:"development"`
	TechStack   []string      `json:"tech_stack"  doc:"Technologies showcased by the project"`
}

// Fixed greeting content.
const (
	Message     = "Hello from Node.js Development Environment!"
	Environment = "development"
)

// TechStack returns the showcased technologies in display order. A new slice
// is returned on every call so responses never share backing storage.
func TechStack() []string {
	return []string{"TypeScript", "React", "Next.js", "Tailwind CSS"}
}

func newData(clock Clock) Data {
	return Data{
		Message:     Message,
		Timestamp:   timeutil.NewTime(clock.Now()),
		Environment: Environment,
		TechStack:   TechStack(),
	}
}
