package web

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/tdewolff/minify/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/devenv-playground/internal/platform/logging"
)

// Options configures a Renderer.
type Options struct {
	// Templates holds layout.html and home.html. Nil means the embedded set.
	Templates fs.FS
	// Assets resolves versioned static URLs. Required.
	Assets *Assets
	// Minifier compacts the rendered HTML. Nil leaves it as executed.
	Minifier *minify.M
	// LiveReload adds the reload script to the layout.
	LiveReload bool
	Page       Page
}

type document struct {
	body []byte
	etag string
}

type view struct {
	Page
	LiveReload bool
}

// Renderer executes the page templates and serves the cached result.
// Render may be called again at any time to rebuild the document; readers
// never block.
type Renderer struct {
	opts Options
	doc  atomic.Pointer[document]
	mu   sync.Mutex
}

// NewRenderer renders the page once and returns a Renderer serving it.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Assets == nil {
		return nil, fmt.Errorf("web: renderer requires assets")
	}
	if opts.Templates == nil {
		opts.Templates = TemplatesFS()
	}
	r := &Renderer{opts: opts}
	if err := r.Render(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Renderer) funcs() template.FuncMap {
	funcs := sprig.HermeticHtmlFuncMap()
	funcs["versioned"] = r.opts.Assets.Versioned
	return funcs
}

// Render parses the templates afresh and swaps in the new document. On error
// the previously rendered document keeps being served.
func (r *Renderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	tmpl, err := template.New("page").Funcs(r.funcs()).ParseFS(r.opts.Templates, "layout.html", "home.html")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view{Page: r.opts.Page, LiveReload: r.opts.LiveReload}); err != nil {
		return fmt.Errorf("execute templates: %w", err)
	}
	body := buf.Bytes()
	if r.opts.Minifier != nil {
		var out bytes.Buffer
		if err := r.opts.Minifier.Minify("text/html", &out, bytes.NewReader(body)); err != nil {
			return fmt.Errorf("minify page: %w", err)
		}
		body = out.Bytes()
	}
	r.doc.Store(&document{body: body, etag: `"` + contentHash(body) + `"`})
	applog.LogInfo(context.Background(), "page rendered",
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Ready reports whether a document is available.
func (r *Renderer) Ready() bool {
	return r.doc.Load() != nil
}

// Bytes returns the current document.
func (r *Renderer) Bytes() []byte {
	if d := r.doc.Load(); d != nil {
		return d.body
	}
	return nil
}

// ServeHTTP writes the cached document. HEAD requests get headers only.
func (r *Renderer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	d := r.doc.Load()
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("ETag", d.etag)
	http.ServeContent(w, req, "index.html", time.Time{}, bytes.NewReader(d.body))
}

// NewMinifier returns a minifier configured for HTML, CSS and JavaScript.
func NewMinifier() *minify.M {
	return newMinifier()
}
