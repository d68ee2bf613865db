package hello

// GetOutput wraps the greeting payload for huma.
type GetOutput struct {
	Body Data
}
