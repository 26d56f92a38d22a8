package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func serve(srv *server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

// TestServeView_Markdown tests the full page for a locally served document
func TestServeView_Markdown(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "abc/report.md", testMarkdownReport)
	srv := newTestServer(t, testConfig(t, dir))

	w := serve(srv, httptest.NewRequest("GET", "/view/?p=abc/report.md", nil))
	assertStatusCode(t, w.Code, http.StatusOK)

	html := w.Body.String()
	assertValidHTML(t, html)
	assertContains(t, html, "<h1>Report</h1>")
	assertContains(t, html, `<a href="/view/?p=%2Fruns%2Fabc%2Fdetails.md">details</a>`)
	assertContains(t, html, "HTTP 200 · text/markdown; charset=utf-8 · mode=render")
	assertContains(t, html, `data-theme="dark"`)

	// Mode links keep p and switch mode
	assertContains(t, html, `href="/view/?mode=code&amp;p=abc%2Freport.md"`)
	assertContains(t, html, `<nav class="modes">`)

	csp := w.Header().Get("Content-Security-Policy")
	assertContains(t, csp, "script-src 'nonce-")
	assertContains(t, csp, "https://cdn.jsdelivr.net")
	assertContains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestServeView_WithoutTrailingSlash(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "a.txt", "plain")
	srv := newTestServer(t, testConfig(t, dir))

	w := serve(srv, httptest.NewRequest("GET", "/view?p=/runs/a.txt", nil))
	assertStatusCode(t, w.Code, http.StatusOK)
	assertContains(t, w.Body.String(), "plain")
}

func TestServeView_Hint(t *testing.T) {
	srv := newTestServer(t, testConfig(t, t.TempDir()))

	for _, target := range []string{"/view/", "/view/?p=" + url.QueryEscape(testPathTraversal)} {
		w := serve(srv, httptest.NewRequest("GET", target, nil))
		assertStatusCode(t, w.Code, http.StatusBadRequest)
		html := w.Body.String()
		assertContains(t, html, "View (missing/invalid ?p=)")
		assertContains(t, html, "Usage")
		assertNotContains(t, html, `<a class="mode`)
		assertNotContains(t, html, `<nav class="modes">`)
	}
}

func TestServeView_HTMLSandbox(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "site/index.html", `<script>alert(1)</script><p>hi</p>`)
	srv := newTestServer(t, testConfig(t, dir))

	w := serve(srv, httptest.NewRequest("GET", "/view/?p=/runs/site/index.html", nil))
	assertStatusCode(t, w.Code, http.StatusOK)
	html := w.Body.String()
	assertContains(t, html, `sandbox=""`)
	assertContains(t, html, `srcdoc="&lt;script&gt;alert(1)&lt;/script&gt;&lt;p&gt;hi&lt;/p&gt;"`)
	assertNotContains(t, html, "<script>alert(1)</script>")

	if csp := w.Header().Get("Content-Security-Policy"); csp != "" {
		t.Errorf("sandbox pages must not carry a CSP, got %q", csp)
	}

	unsafe := serve(srv, httptest.NewRequest("GET", "/view/?p=/runs/site/index.html&mode=UNSAFE", nil))
	assertContains(t, unsafe.Body.String(), `sandbox="allow-scripts allow-same-origin"`)
}

func TestServeView_MissingFile(t *testing.T) {
	srv := newTestServer(t, testConfig(t, t.TempDir()))

	w := serve(srv, httptest.NewRequest("GET", "/view/?p=/runs/nope.md", nil))
	assertStatusCode(t, w.Code, http.StatusOK)
	html := w.Body.String()
	assertContains(t, html, "HTTP 404")
	assertContains(t, html, `<pre class="code"><code>not found</code></pre>`)
}

func TestServeView_Upstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/x/main.go" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("package main // <tag>"))
	}))
	defer upstream.Close()

	cfg := testConfig(t, t.TempDir())
	cfg.Upstream = upstream.URL
	srv := newTestServer(t, cfg)

	w := serve(srv, httptest.NewRequest("GET", "/view/?p=repos/x/main.go", nil))
	assertStatusCode(t, w.Code, http.StatusOK)
	html := w.Body.String()
	assertContains(t, html, "package main // &lt;tag&gt;")
	assertContains(t, html, "mode=code")
}

func TestServeView_LiveReloadURL(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "a.md", "# A")
	cfg := testConfig(t, dir)
	cfg.LiveReload = true
	srv := newTestServer(t, cfg)
	if srv.hub == nil {
		t.Skip("watcher unavailable")
	}

	w := serve(srv, httptest.NewRequest("GET", "/view/?p=/runs/a.md", nil))
	assertContains(t, w.Body.String(), `data-events="/events?p=%2Fruns%2Fa.md"`)
}

func TestServeRoots_Local(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "abc/pic.svg", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`)
	srv := newTestServer(t, testConfig(t, dir))

	w := serve(srv, httptest.NewRequest("GET", "/runs/abc/pic.svg", nil))
	assertStatusCode(t, w.Code, http.StatusOK)
	assertContains(t, w.Header().Get("Content-Type"), "image/svg+xml")
	assertContains(t, w.Header().Get("Cache-Control"), "no-store")
	assertContains(t, w.Body.String(), "<svg")

	missing := serve(srv, httptest.NewRequest("GET", "/runs/abc/none.png", nil))
	assertStatusCode(t, missing.Code, http.StatusNotFound)
}

func TestServeRoots_Proxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("proxied " + r.URL.Path))
	}))
	defer upstream.Close()

	cfg := testConfig(t, t.TempDir())
	cfg.Upstream = upstream.URL
	srv := newTestServer(t, cfg)

	w := serve(srv, httptest.NewRequest("GET", "/assets/site.css", nil))
	assertStatusCode(t, w.Code, http.StatusOK)
	if body := w.Body.String(); body != "proxied /assets/site.css" {
		t.Errorf("body = %q", body)
	}
}

func TestHandleTheme(t *testing.T) {
	srv := newTestServer(t, testConfig(t, t.TempDir()))

	form := strings.NewReader(url.Values{"theme": {"light"}}.Encode())
	req := httptest.NewRequest("POST", "/theme", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(srv, req)
	assertStatusCode(t, w.Code, http.StatusOK)

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp["theme"] != "light" {
		t.Errorf("theme = %q", resp["theme"])
	}

	page := serve(srv, httptest.NewRequest("GET", "/view/", nil))
	assertContains(t, page.Body.String(), `data-theme="light"`)

	// Empty form toggles
	toggle := serve(srv, httptest.NewRequest("POST", "/theme", nil))
	assertContains(t, toggle.Body.String(), `"theme":"dark"`)
}

func TestHandleTheme_Invalid(t *testing.T) {
	srv := newTestServer(t, testConfig(t, t.TempDir()))

	req := httptest.NewRequest("POST", "/theme", strings.NewReader("theme=purple"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(srv, req)
	assertStatusCode(t, w.Code, http.StatusBadRequest)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, testConfig(t, t.TempDir()))
	w := serve(srv, httptest.NewRequest("GET", "/healthz", nil))
	assertStatusCode(t, w.Code, http.StatusOK)
	if w.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRootRedirectsToViewer(t *testing.T) {
	srv := newTestServer(t, testConfig(t, t.TempDir()))
	w := serve(srv, httptest.NewRequest("GET", "/", nil))
	assertStatusCode(t, w.Code, http.StatusFound)
	if loc := w.Header().Get("Location"); loc != "/view/" {
		t.Errorf("Location = %q", loc)
	}
}

// TestWithRecovery tests panic recovery middleware
func TestWithRecovery(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := withRecovery(panicHandler)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	// Should not panic, but return 500
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Internal server error") {
		t.Error("response should contain error message")
	}
}

// TestWithRecovery_NormalOperation tests middleware doesn't affect normal handlers
func TestWithRecovery_NormalOperation(t *testing.T) {
	normalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	handler := withRecovery(normalHandler)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "success" {
		t.Errorf("expected 'success', got %q", string(body))
	}
}
