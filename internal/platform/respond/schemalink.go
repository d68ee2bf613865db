package respond

import (
	"reflect"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// APIConfig returns huma's default configuration with the schema link
// transformer replaced by SchemaLink: response bodies are sent exactly as
// declared, and their schema is advertised only through the Link header.
func APIConfig(title, version string) huma.Config {
	cfg := huma.DefaultConfig(title, version)
	cfg.CreateHooks = nil
	cfg.Transformers = append(cfg.Transformers, SchemaLink(cfg.SchemasPath))
	return cfg
}

// SchemaLink sets `Link: </schemas/Name.json>; rel="describedBy"` for struct
// response bodies without rewriting them.
func SchemaLink(schemasPath string) huma.Transformer {
	prefix := strings.TrimSuffix(schemasPath, "/") + "/"
	return func(ctx huma.Context, _ string, v any) (any, error) {
		if v == nil || schemasPath == "" {
			return v, nil
		}
		t := reflect.TypeOf(v)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct || t.Name() == "" {
			return v, nil
		}
		ctx.AppendHeader("Link", `<`+prefix+huma.DefaultSchemaNamer(t, "")+`.json>; rel="describedBy"`)
		return v, nil
	}
}
