package main

import (
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// servedRoots are the logical roots whose raw bytes the viewer origin serves.
// /view is the viewer itself and is never backed by a directory.
var servedRoots = []string{"runs", "repos", "assets", "fs"}

func isServedRoot(name string) bool {
	for _, r := range servedRoots {
		if r == name {
			return true
		}
	}
	return false
}

// mountRoots serves each logical root on the viewer origin so that sandboxed
// documents and images resolve their root-relative requests here. A locally
// backed root is served from disk; the rest are proxied to the upstream.
func mountRoots(r chi.Router, local *localFetcher, upstream *url.URL) {
	var proxy http.Handler
	if upstream != nil {
		proxy = httputil.NewSingleHostReverseProxy(upstream)
	}

	for _, name := range servedRoots {
		prefix := "/" + name
		var h http.Handler
		switch {
		case local != nil && local.roots[name] != nil:
			h = http.StripPrefix(prefix, http.FileServerFS(local.roots[name].FS()))
		case proxy != nil:
			h = proxy
		default:
			continue
		}
		r.Handle(prefix+"/*", noCache(nosniff(h)))
	}
}

// noCache disables all browser caching so previews always reflect the file on disk.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		// Prevent conditional caching
		w.Header().Del("ETag")
		w.Header().Del("Last-Modified")

		next.ServeHTTP(w, r)
	})
}

func nosniff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// contentTypeForPath returns a browser-safe Content-Type for common files.
// It overrides sniffing for .css/.js to avoid MIME mismatch blocking.
func contentTypeForPath(rel string, data []byte) string {
	ext := strings.ToLower(path.Ext(rel))

	switch ext {
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".md", ".markdown":
		return "text/markdown; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	}

	if ext != "" {
		if mt := mime.TypeByExtension(ext); mt != "" {
			return mt
		}
	}

	return http.DetectContentType(data)
}
