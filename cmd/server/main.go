package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/devenv-playground/internal/http/api/hello"
	"github.com/janisto/devenv-playground/internal/http/api/routes"
	"github.com/janisto/devenv-playground/internal/http/health"
	"github.com/janisto/devenv-playground/internal/platform/config"
	applog "github.com/janisto/devenv-playground/internal/platform/logging"
	appmiddleware "github.com/janisto/devenv-playground/internal/platform/middleware"
	"github.com/janisto/devenv-playground/internal/platform/respond"
	"github.com/janisto/devenv-playground/internal/platform/timeutil"
	"github.com/janisto/devenv-playground/internal/web"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

type server struct {
	handler  http.Handler
	renderer *web.Renderer
	hub      *web.Hub
}

func newServer(cfg config.Config) (*server, error) {
	minifier := web.NewMinifier()
	if !cfg.Minify {
		minifier = nil
	}
	assets, err := web.LoadAssets(minifier, cfg.LiveReload)
	if err != nil {
		return nil, err
	}
	opts := web.Options{
		Assets:     assets,
		Minifier:   minifier,
		LiveReload: cfg.LiveReload,
		Page:       web.DefaultPage(hello.Path),
	}
	if cfg.LiveReload {
		opts.Templates = os.DirFS(cfg.TemplateDir)
	}
	renderer, err := web.NewRenderer(opts)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security("/api-docs"),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP extracts client IP from X-Real-IP or X-Forwarded-For headers.
		// SECURITY: Only use behind a trusted reverse proxy (e.g., Cloud Run, nginx).
		// Without a trusted proxy, clients can spoof their IP address.
		chimiddleware.RealIP,
		// RequestSize limits request body size to prevent memory exhaustion from large payloads.
		chimiddleware.RequestSize(1<<20), // 1 MB limit
		applog.RequestLogger(),
		applog.AccessLogger(web.StaticPrefix, web.LiveReloadPath),
		respond.Recoverer(),
	)

	router.Get("/", renderer.ServeHTTP)
	router.Head("/", renderer.ServeHTTP)
	redirectHome := func(w http.ResponseWriter, r *http.Request) {
		respond.WriteRedirect(w, r, "/", http.StatusMovedPermanently)
	}
	router.Get("/index.html", redirectHome)
	router.Head("/index.html", redirectHome)

	static := assets.Handler()
	router.Get(web.StaticPrefix+"*", static.ServeHTTP)
	router.Head(web.StaticPrefix+"*", static.ServeHTTP)

	healthHandler := health.Handler(renderer.Ready)
	router.Get("/health", healthHandler)
	router.Head("/health", healthHandler)

	var hub *web.Hub
	if cfg.LiveReload {
		hub = web.NewHub()
		router.Get(web.LiveReloadPath, hub.ServeHTTP)
	}

	humaCfg := respond.APIConfig("Devenv Playground API", Version)
	humaCfg.DocsPath = "/api-docs"
	// Allow JSON fallback for wildcard Accept headers (e.g., */*) since Huma's
	// negotiation uses exact matching and doesn't interpret wildcards per
	// RFC 9110 section 12.5.1. Clients sending unsupported types like text/plain
	// will still receive JSON rather than 406, which is acceptable per RFC 9110
	// section 12.4.1 (servers MAY disregard Accept and return a default).
	api := humachi.New(router, humaCfg)
	addCBORContentTypes(api)

	// Register routes
	routes.Register(api, timeutil.NewClock())

	return &server{handler: router, renderer: renderer, hub: hub}, nil
}

// addCBORContentTypes mirrors every JSON request and response body in the
// OpenAPI document as application/cbor.
func addCBORContentTypes(api huma.API) {
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation,
		func(_ *huma.OpenAPI, op *huma.Operation) {
			if op.RequestBody != nil && op.RequestBody.Content != nil {
				if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
					op.RequestBody.Content["application/cbor"] = jsonContent
				}
			}
			for _, resp := range op.Responses {
				if resp.Content == nil {
					continue
				}
				if jsonContent, ok := resp.Content["application/json"]; ok {
					resp.Content["application/cbor"] = jsonContent
				}
			}
		},
	)
}

func main() {
	ctx := context.Background()
	defer func() {
		if err := applog.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
			applog.LogError(ctx, "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "config load failed", err)
		os.Exit(1)
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		applog.LogError(ctx, "log level", err)
		os.Exit(1)
	}

	app, err := newServer(cfg)
	if err != nil {
		applog.LogError(ctx, "server init failed", err)
		os.Exit(1)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if app.hub != nil {
		watchLog := applog.WithLogger(watchCtx, applog.Logger().With(zap.String("component", "livereload")))
		go func() {
			if err := web.Watch(watchLog, cfg.TemplateDir, web.Reloader(watchLog, app.renderer, app.hub)); err != nil {
				applog.LogError(watchLog, "template watcher stopped", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		applog.LogError(ctx, "listen failed", err, zap.String("addr", srv.Addr))
		os.Exit(1)
	}
	applog.LogInfo(ctx, "server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("liveReload", cfg.LiveReload),
		zap.Bool("minify", cfg.Minify),
	)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	serveErr := serve(ctx, srv, ln, stop, shutdownTimeout)
	stopWatch()
	if app.hub != nil {
		app.hub.Close()
	}
	if serveErr != nil {
		applog.LogError(ctx, "serve failed", serveErr, zap.String("addr", srv.Addr))
		os.Exit(1)
	}
	applog.LogInfo(ctx, "server exited")
}

const shutdownTimeout = 10 * time.Second

// serve runs srv on ln until a signal arrives on stop, then shuts it down
// within timeout. It returns the error that ended Serve early; shutdown
// errors are logged.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, stop <-chan os.Signal, timeout time.Duration) error {
	listenErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return err
	case sig := <-stop:
		applog.LogInfo(ctx, "shutdown signal received", zap.String("signal", sig.String()))
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
	}
	return nil
}
