package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// server is the preview HTTP server.
type server struct {
	cfg      *Config
	renderer *previewRenderer
	assets   *pageAssets
	theme    *themeStore
	local    *localFetcher
	hub      *reloadHub // nil when live reload is off
	upstream *url.URL

	router     chi.Router
	httpServer *http.Server
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// newPreviewRenderer wires the content sources and optional passes from cfg.
// The caller owns the returned localFetcher and must close it.
func newPreviewRenderer(cfg *Config, verbose bool) (*previewRenderer, *localFetcher, error) {
	dirs, err := cfg.rootDirs()
	if err != nil {
		return nil, nil, err
	}
	local, err := openLocalFetcher(dirs, cfg.Fetch.MaxBytes)
	if err != nil {
		return nil, nil, err
	}

	var upstream *httpFetcher
	if cfg.Upstream != "" {
		upstream, err = newHTTPFetcher(cfg.Upstream, cfg.Fetch.Timeout, cfg.Fetch.MaxBytes)
		if err != nil {
			local.close()
			return nil, nil, err
		}
	}

	pr := &previewRenderer{
		fetcher: &sourceFetcher{local: local, upstream: upstream},
		usage:   usageHTML,
		verbose: verbose,
	}
	if cfg.Code.Highlight {
		pr.highlight = newCodeHighlighter(cfg.Code.Style)
	}
	if cfg.Markdown.Sanitize {
		pr.policy = newFragmentPolicy()
	}
	return pr, local, nil
}

// themePath is where the theme preference lives; "" keeps it in memory only.
func themePath(cfg *Config) string {
	dir, err := cfg.stateDir()
	if err != nil {
		log.Printf("Warning: theme preference will not persist: %v", err)
		return ""
	}
	return filepath.Join(dir, "theme")
}

// newServer builds the server and all of its dependencies from cfg.
func newServer(cfg *Config, verbose bool) (*server, error) {
	renderer, local, err := newPreviewRenderer(cfg, verbose)
	if err != nil {
		return nil, err
	}

	s := &server{
		cfg:      cfg,
		renderer: renderer,
		assets:   newPageAssets(renderer.highlight, cfg.Markdown),
		theme:    loadThemeStore(themePath(cfg), cfg.Theme),
		local:    local,
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	if cfg.Upstream != "" {
		s.upstream, err = url.Parse(cfg.Upstream)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("invalid upstream: %w", err)
		}
	}

	if cfg.LiveReload && len(local.roots) > 0 {
		s.hub, err = newReloadHub(local)
		if err != nil {
			log.Printf("Warning: live reload disabled: %v", err)
		}
	}

	s.router = s.buildRouter()
	return s, nil
}

// buildRouter creates and configures the chi router with all routes.
func (s *server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(withRecovery)
	r.Use(securityHeaders)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/view/", http.StatusFound)
	})

	r.Group(func(r chi.Router) {
		r.Use(noCache)
		r.Use(middleware.Timeout(s.cfg.Fetch.Timeout + 5*time.Second))
		r.Get("/view", s.serveView)
		r.Get("/view/", s.serveView)
	})

	r.With(withCSRFCheck(s.cfg.Listen)).Post("/theme", s.handleTheme)

	if s.hub != nil {
		r.Get("/events", s.hub.serveSSE)
	}

	mountRoots(r, s.local, s.upstream)

	return r
}

// withRecovery wraps an HTTP handler with panic recovery
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Printf("PANIC: %v\n%s", err, debug.Stack())
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withCSRFCheck rejects cross-origin POST requests by validating the Origin header
func withCSRFCheck(listen string) func(http.Handler) http.Handler {
	allowed := allowedOrigins(listen)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && !allowed[origin] {
				log.Printf("CSRF: rejected cross-origin POST from %s", origin)
				http.Error(w, "Forbidden: cross-origin request", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allowedOrigins lists the origins a browser uses for the listen address.
func allowedOrigins(listen string) map[string]bool {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return map[string]bool{}
	}
	allowed := map[string]bool{
		"http://localhost:" + port: true,
		"http://127.0.0.1:" + port: true,
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		allowed["http://"+net.JoinHostPort(host, port)] = true
	}
	return allowed
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// contentSecurityPolicy covers every page except sandbox previews: a srcdoc
// frame inherits its parent's policy, which would break unsafe mode.
func contentSecurityPolicy(nonce string, engines MarkdownConfig) string {
	extra := ""
	for _, origin := range engineOrigins(engines) {
		extra += " " + origin
	}
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'nonce-" + nonce + "'" + extra,
		"style-src 'self' 'unsafe-inline'" + extra,
		"font-src 'self' data:" + extra,
		"img-src 'self' data: http: https:",
		"connect-src 'self'",
		"object-src 'none'",
		"base-uri 'none'",
		"frame-ancestors 'self'",
	}, "; ")
}

// engineOrigins returns the distinct scheme://host origins of the engine URLs.
func engineOrigins(engines MarkdownConfig) []string {
	seen := map[string]bool{}
	var origins []string
	for _, raw := range []string{engines.MermaidURL, engines.KatexCSSURL, engines.KatexJSURL, engines.KatexAutoRenderURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if !seen[origin] {
			seen[origin] = true
			origins = append(origins, origin)
		}
	}
	return origins
}

func (s *server) serveView(w http.ResponseWriter, r *http.Request) {
	params := parseRequestParams(r.URL.Query())
	preview := s.renderer.Render(r.Context(), params)

	var modes []modeLink
	eventsURL := ""
	if preview.Kind != kindHint {
		modes = modeLinks(r.URL, preview.Mode)
		if s.hub.supports(preview.Path) {
			eventsURL = "/events?p=" + url.QueryEscape(preview.Path)
		}
	}

	nonce := uuid.NewString()
	data := s.assets.pageData(preview, modes, s.theme.Get(), nonce, eventsURL)

	var buf bytes.Buffer
	if err := writePage(&buf, data); err != nil {
		log.Printf("Template execution error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if preview.Kind != kindSandbox {
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy(nonce, data.Engines))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	status := http.StatusOK
	if preview.Kind == kindHint {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// handleTheme sets the theme from the "theme" form value, or toggles it when
// the value is absent.
func (s *server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	theme := r.PostFormValue("theme")
	if theme == "" {
		theme = s.theme.Toggle()
	} else if err := s.theme.Set(theme); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"theme": theme})
}

// Start begins listening on the configured address.
func (s *server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.cfg.Listen,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout intentionally omitted for SSE streaming endpoints
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}

	log.Printf("uiview listening on http://%s/view/", s.cfg.Listen)
	return s.httpServer.ListenAndServe()
}

// Shutdown ends open event streams, then gracefully stops the HTTP server.
func (s *server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.close()
	return err
}

func (s *server) close() {
	if s.cancelBase != nil {
		s.cancelBase()
	}
	s.hub.close()
	s.local.close()
}
