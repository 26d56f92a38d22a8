package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// stubFetcher answers every path with the same result, or with err.
type stubFetcher struct {
	result *fetchResult
	err    error
	calls  []string
}

func (f *stubFetcher) Fetch(ctx context.Context, path string) (*fetchResult, error) {
	f.calls = append(f.calls, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// panicFetcher panics on every fetch.
type panicFetcher struct{}

func (panicFetcher) Fetch(ctx context.Context, path string) (*fetchResult, error) {
	panic("fetcher exploded")
}

func okResult(contentType, body string) *fetchResult {
	return &fetchResult{Status: 200, ContentType: contentType, Body: []byte(body)}
}

// createTestFile creates a file (and its parent directories) under dir
func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file %s: %v", path, err)
	}
	return path
}

// testConfig returns a valid config serving the runs root from runsDir with
// no upstream, state kept in a temp dir and highlighting off.
func testConfig(t *testing.T, runsDir string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Upstream = ""
	cfg.Roots = map[string]string{"runs": runsDir}
	cfg.StateDir = t.TempDir()
	cfg.LiveReload = false
	cfg.Code.Highlight = false
	return cfg
}

// newTestServer builds a server from cfg and closes it on cleanup
func newTestServer(t *testing.T, cfg *Config) *server {
	t.Helper()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	srv, err := newServer(cfg, false)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv
}

// assertValidHTML checks for required HTML structure elements
func assertValidHTML(t *testing.T, html string) {
	t.Helper()
	required := []string{
		"<!DOCTYPE html>",
		"<html",
		"<head>",
		"<body",
		"</body>",
		"</html>",
	}
	for _, tag := range required {
		if !strings.Contains(html, tag) {
			t.Errorf("HTML missing required tag: %s", tag)
		}
	}
}

// assertContains is a helper for checking string containment with clear error messages
func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected string to contain %q, got: %s", substr, s)
	}
}

// assertNotContains is a helper for checking string non-containment
func assertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("expected string NOT to contain %q, but it does", substr)
	}
}

// assertStatusCode checks HTTP status code with clear error message
func assertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected status code %d, got %d", want, got)
	}
}
