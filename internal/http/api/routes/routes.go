package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/devenv-playground/internal/http/api/hello"
)

// Register wires all API operations into the provided API router.
func Register(api huma.API, clock hello.Clock) {
	hello.Register(api, clock)
}
