package web

import (
	"bytes"
	"crypto/md5"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	minjs "github.com/tdewolff/minify/v2/js"

	"github.com/janisto/devenv-playground/internal/platform/respond"
)

// StaticPrefix is the URL prefix embedded assets are served under.
const StaticPrefix = "/static/"

// StaticCacheControl marks assets as cacheable forever; URLs carry a content hash.
const StaticCacheControl = "public, max-age=31536000, immutable"

//go:embed templates/*.html static/*
var embedded embed.FS

// TemplatesFS returns the templates compiled into the binary.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

type asset struct {
	body        []byte
	hash        string
	contentType string
}

// Assets is the in-memory set of static files, minified and hashed at load.
type Assets struct {
	files map[string]asset
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	m.AddFunc("application/javascript", minjs.Minify)
	m.Add("text/html", &minhtml.Minifier{
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
		KeepDefaultAttrVals: true,
	})
	return m
}

func contentHash(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])[:6]
}

// minifyType maps a Content-Type to the media type registered on the
// minifier, or "" when the asset is served as is.
func minifyType(ctype string) string {
	mediatype, _, _ := strings.Cut(ctype, ";")
	switch mediatype {
	case "text/css":
		return "text/css"
	case "text/javascript", "application/javascript":
		return "application/javascript"
	}
	return ""
}

// liveReloadScript is only served when live reload is enabled.
const liveReloadScript = "livereload.js"

// LoadAssets reads every file under static/ in the embedded filesystem.
// When m is non-nil CSS and JavaScript are minified first. The live reload
// script is left out unless liveReload is set.
func LoadAssets(m *minify.M, liveReload bool) (*Assets, error) {
	var skip []string
	if !liveReload {
		skip = append(skip, liveReloadScript)
	}
	return loadAssets(embedded, "static", m, skip...)
}

func loadAssets(fsys fs.FS, root string, m *minify.M, skip ...string) (*Assets, error) {
	a := &Assets{files: make(map[string]asset)}
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.TrimPrefix(p, root+"/")
		if slices.Contains(skip, name) {
			return nil
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		ctype := mime.TypeByExtension(path.Ext(p))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		if mt := minifyType(ctype); m != nil && mt != "" {
			var buf bytes.Buffer
			if err := m.Minify(mt, &buf, bytes.NewReader(body)); err != nil {
				return fmt.Errorf("minify %s: %w", p, err)
			}
			body = buf.Bytes()
		}
		a.files[name] = asset{body: body, hash: contentHash(body), contentType: ctype}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}
	return a, nil
}

// Versioned appends the content hash to a static URL. Paths outside
// StaticPrefix or unknown files are returned unchanged.
func (a *Assets) Versioned(urlPath string) string {
	name, ok := strings.CutPrefix(urlPath, StaticPrefix)
	if !ok {
		return urlPath
	}
	f, ok := a.files[name]
	if !ok {
		return urlPath
	}
	return urlPath + "?v=" + f.hash
}

// Handler serves assets under StaticPrefix. Unknown files get a 404 problem.
func (a *Assets) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, StaticPrefix)
		f, ok := a.files[name]
		if !ok {
			respond.WriteProblem(w, r, http.StatusNotFound, "resource not found")
			return
		}
		h := w.Header()
		h.Set("Content-Type", f.contentType)
		h.Set("Cache-Control", StaticCacheControl)
		h.Set("ETag", `"`+f.hash+`"`)
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(f.body))
	})
}
