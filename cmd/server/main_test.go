package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/net/html"

	"github.com/janisto/devenv-playground/internal/http/api/hello"
	"github.com/janisto/devenv-playground/internal/http/health"
	"github.com/janisto/devenv-playground/internal/platform/config"
	"github.com/janisto/devenv-playground/internal/web"
)

func testServer(t *testing.T, mutate ...func(*config.Config)) *server {
	t.Helper()
	cfg := config.Default()
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := newServer(cfg)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return srv
}

func doRequest(h http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "test-req")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealth(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodGet, "/health", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", resp.Code)
	}
	var h health.Response
	if err := json.Unmarshal(resp.Body.Bytes(), &h); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if h.Status != "healthy" {
		t.Fatalf("expected status 'healthy', got %s", h.Status)
	}
}

func TestHelloScenario(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodGet, hello.Path, nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var data map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &data); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("expected exactly 4 fields, got %d: %v", len(data), data)
	}
	if data["message"] != "Hello from Node.js Development Environment!" {
		t.Errorf("unexpected message %v", data["message"])
	}
	if data["environment"] != "development" {
		t.Errorf("unexpected environment %v", data["environment"])
	}
	ts, _ := data["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp %q is not ISO-8601: %v", ts, err)
	}
	stack, _ := data["tech_stack"].([]any)
	want := []string{"TypeScript", "React", "Next.js", "Tailwind CSS"}
	if len(stack) != len(want) {
		t.Fatalf("expected %d tech_stack entries, got %v", len(want), stack)
	}
	for i, w := range want {
		if stack[i] != w {
			t.Errorf("tech_stack[%d]: expected %q, got %v", i, w, stack[i])
		}
	}
}

func TestHelloCBOR(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodGet, hello.Path, map[string]string{"Accept": "application/cbor"})

	if ct := resp.Header().Get("Content-Type"); ct != "application/cbor" {
		t.Fatalf("expected application/cbor, got %q", ct)
	}
	var data hello.Data
	if err := cbor.Unmarshal(resp.Body.Bytes(), &data); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if data.Message != hello.Message {
		t.Errorf("unexpected message %q", data.Message)
	}
}

func TestHomePage(t *testing.T) {
	srv := testServer(t)
	resp := doRequest(srv.handler, http.MethodGet, "/", nil)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if csp := resp.Header().Get("Content-Security-Policy"); csp == "" {
		t.Error("expected Content-Security-Policy header")
	}

	doc, err := html.Parse(bytes.NewReader(resp.Body.Bytes()))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	var cards int
	var links, stylesheets []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attrs := map[string]string{}
			for _, a := range n.Attr {
				attrs[a.Key] = a.Val
			}
			switch {
			case n.Data == "article" && strings.Contains(attrs["class"], "card"):
				cards++
			case n.Data == "a":
				links = append(links, attrs["href"])
			case n.Data == "link" && attrs["rel"] == "stylesheet" && strings.HasPrefix(attrs["href"], web.StaticPrefix):
				stylesheets = append(stylesheets, attrs["href"])
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if cards != 3 {
		t.Errorf("expected 3 cards, got %d", cards)
	}
	if len(links) != 1 || links[0] != hello.Path {
		t.Errorf("expected one link to %s, got %v", hello.Path, links)
	}
	if len(stylesheets) != 1 {
		t.Fatalf("expected one local stylesheet, got %v", stylesheets)
	}

	// The versioned stylesheet URL resolves.
	css := doRequest(srv.handler, http.MethodGet, stylesheets[0], nil)
	if css.Code != http.StatusOK {
		t.Fatalf("expected stylesheet 200, got %d", css.Code)
	}
	if cc := css.Header().Get("Cache-Control"); cc != web.StaticCacheControl {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestHomePageHead(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodHead, "/", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %d bytes", resp.Body.Len())
	}
}

func TestIndexRedirect(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodGet, "/index.html", nil)

	if resp.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301 got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected Location /, got %q", loc)
	}
}

func TestNotFoundReturnsProblemDetails(t *testing.T) {
	for _, path := range []string{"/missing", "/static/missing.css"} {
		resp := doRequest(testServer(t).handler, http.MethodGet, path, nil)

		if resp.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404 got %d", path, resp.Code)
		}
		if ct := resp.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: expected application/problem+json content type, got %q", path, ct)
		}
		var problem huma.ErrorModel
		if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
			t.Fatalf("%s: failed to unmarshal 404 response: %v", path, err)
		}
		if problem.Status != http.StatusNotFound || problem.Detail != "resource not found" {
			t.Fatalf("%s: unexpected problem %+v", path, problem)
		}
	}
}

func TestNotFoundCBOR(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodGet, "/missing", map[string]string{"Accept": "application/cbor"})

	if ct := resp.Header().Get("Content-Type"); ct != "application/problem+cbor" {
		t.Fatalf("expected application/problem+cbor, got %q", ct)
	}
	var problem huma.ErrorModel
	if err := cbor.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("cbor unmarshal: %v", err)
	}
	if problem.Status != http.StatusNotFound {
		t.Fatalf("expected 404 in body, got %d", problem.Status)
	}
}

func TestMethodNotAllowedReturnsProblemDetails(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodPost, "/health", nil)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
		t.Fatalf("expected Allow header to list GET, got %q", allow)
	}
	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to unmarshal 405 response: %v", err)
	}
	if problem.Title != "Method Not Allowed" || !strings.Contains(problem.Detail, "POST") {
		t.Fatalf("unexpected problem %+v", problem)
	}
}

func TestWildcardAcceptReturnsJSON(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		name   string
		accept string
	}{
		{"wildcard all", "*/*"},
		{"application wildcard", "application/*"},
		{"unsupported type", "text/plain"},
		{"no accept header", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.accept != "" {
				headers["Accept"] = tt.accept
			}
			resp := doRequest(srv.handler, http.MethodGet, hello.Path, headers)

			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200 OK, got %d", resp.Code)
			}
			if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected application/json, got %q", ct)
			}
		})
	}
}

func TestOpenAPIDocument(t *testing.T) {
	resp := doRequest(testServer(t).handler, http.MethodGet, "/openapi.json", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var doc struct {
		Paths map[string]map[string]struct {
			Responses map[string]struct {
				Content map[string]any `json:"content"`
			} `json:"responses"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to unmarshal openapi: %v", err)
	}
	get, ok := doc.Paths[hello.Path]["get"]
	if !ok {
		t.Fatalf("expected GET %s in OpenAPI paths", hello.Path)
	}
	content := get.Responses["200"].Content
	if _, ok := content["application/json"]; !ok {
		t.Error("expected application/json response content")
	}
	if _, ok := content["application/cbor"]; !ok {
		t.Error("expected application/cbor response content")
	}
}

func TestLiveReloadDisabledByDefault(t *testing.T) {
	srv := testServer(t)
	if srv.hub != nil {
		t.Fatal("expected no hub when live reload is off")
	}
	resp := doRequest(srv.handler, http.MethodGet, web.LiveReloadPath, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for live reload path, got %d", resp.Code)
	}
	script := doRequest(srv.handler, http.MethodGet, "/static/livereload.js", nil)
	if script.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for live reload script, got %d", script.Code)
	}
}

func TestLiveReloadEnabled(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"layout.html", "home.html"} {
		b, err := os.ReadFile(filepath.Join("..", "..", "internal", "web", "templates", name))
		if err != nil {
			t.Fatalf("read template: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o600); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	srv := testServer(t, func(c *config.Config) {
		c.LiveReload = true
		c.TemplateDir = dir
	})
	if srv.hub == nil {
		t.Fatal("expected hub when live reload is on")
	}

	ts := httptest.NewServer(srv.handler)
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+web.LiveReloadPath, nil)
	if err != nil {
		t.Fatalf("dial live reload: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for client registration")
		}
		time.Sleep(10 * time.Millisecond)
	}

	web.Reloader(context.Background(), srv.renderer, srv.hub)()
	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	if _, msg, err := ws.ReadMessage(); err != nil || string(msg) != "reload" {
		t.Fatalf("expected reload message, got %q, %v", msg, err)
	}
	if !strings.Contains(string(srv.renderer.Bytes()), "/static/livereload.js?v=") {
		t.Error("expected live reload script in page")
	}
}

func TestNewServerMissingTemplateDir(t *testing.T) {
	_, err := newServer(func() config.Config {
		cfg := config.Default()
		cfg.LiveReload = true
		cfg.TemplateDir = filepath.Join(t.TempDir(), "missing")
		return cfg
	}())
	if err == nil {
		t.Fatal("expected error for missing template dir")
	}
}

func TestServeShutsDownOnSignal(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: testServer(t).handler, ReadHeaderTimeout: time.Second}
	stop := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), srv, ln, stop, time.Second)
	}()

	url := "http://" + ln.Addr().String() + "/health"
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request before shutdown: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 before shutdown, got %d", resp.StatusCode)
	}

	stop <- syscall.SIGTERM
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after signal")
	}

	client := &http.Client{Timeout: time.Second}
	if resp, err := client.Get(url); err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected requests to fail after shutdown")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_ = ln.Close()

	srv := &http.Server{Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), srv, ln, make(chan os.Signal), time.Second)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from closed listener")
		}
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("expected net.ErrClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return on listen error")
	}
}

func TestOpenAPICBORContentTypes(t *testing.T) {
	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	addCBORContentTypes(api)

	type TestInput struct {
		Body struct {
			Name string `json:"name"`
		}
	}
	type TestOutput struct {
		Body struct {
			Message string `json:"message"`
		}
	}
	huma.Post(api, "/test", func(_ context.Context, input *TestInput) (*TestOutput, error) {
		out := &TestOutput{}
		out.Body.Message = "Hello, " + input.Body.Name
		return out, nil
	})

	op := api.OpenAPI().Paths["/test"].Post
	if op.RequestBody == nil {
		t.Fatal("expected request body in operation")
	}
	if _, ok := op.RequestBody.Content["application/cbor"]; !ok {
		t.Fatal("expected application/cbor in request body content")
	}
	resp200 := op.Responses["200"]
	if resp200 == nil {
		t.Fatal("expected 200 response")
	}
	if _, ok := resp200.Content["application/cbor"]; !ok {
		t.Fatal("expected application/cbor in 200 response content")
	}
}
