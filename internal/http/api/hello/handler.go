package hello

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/devenv-playground/internal/platform/logging"
)

// Path is where the greeting endpoint is mounted. The home page links here.
const Path = "/api/hello"

// Clock supplies the greeting timestamp.
type Clock interface {
	Now() time.Time
}

// Register wires the greeting endpoint into the provided API.
func Register(api huma.API, clock Clock) {
	huma.Register(api, huma.Operation{
		OperationID: "get-hello",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Get a greeting",
		Description: "Returns a fixed greeting with the current server time.",
		Tags:        []string{"Hello"},
	}, func(ctx context.Context, _ *struct{}) (*GetOutput, error) {
		data := newData(clock)
		applog.LogInfo(ctx, "hello get", zap.String("path", Path), zap.Stringer("greetingTime", data.Timestamp))
		return &GetOutput{Body: data}, nil
	})
}
