package main

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t", ""},
		{"traversal", testPathTraversal, ""},
		{"traversal inside absolute path", "/runs/a/../b.md", ""},
		{"dots anywhere", "/runs/a..b/c.md", ""},
		{"absolute kept verbatim", "/fs/mounts/x.md", "/fs/mounts/x.md"},
		{"absolute unknown root kept", "/other/x.md", "/other/x.md"},
		{"runs prefix", "runs/abc/x.md", "/runs/abc/x.md"},
		{"repos prefix", "repos/site/index.html", "/repos/site/index.html"},
		{"assets prefix", "assets/logo.png", "/assets/logo.png"},
		{"fs prefix", "fs/mounts/a.md", "/fs/mounts/a.md"},
		{"view prefix", "view/x", "/view/x"},
		{"bare run id", testPathRunID, "/runs/" + testPathRunID},
		{"root name without slash is a run id", "repos", "/runs/repos"},
		{"trimmed", "  abc/x.md \n", "/runs/abc/x.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.input); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBaseDir(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/a/b/c.md", "/a/b/"},
		{"/c.md", "/"},
		{"c.md", "/"},
		{"/runs/abc/", "/runs/abc/"},
		{"", "/"},
	}
	for _, tt := range tests {
		if got := baseDir(tt.path); got != tt.want {
			t.Errorf("baseDir(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestResolveReference(t *testing.T) {
	const base = "/runs/abc/"
	tests := []struct {
		ref  string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"pic.png", "/runs/abc/pic.png"},
		{" sub/pic.png ", "/runs/abc/sub/pic.png"},
		{"/repos/x.md", "/repos/x.md"},
		{"http://example.com/a", "http://example.com/a"},
		{"HTTPS://Example.com/a", "HTTPS://Example.com/a"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"notes.md?x=1#top", "/runs/abc/notes.md?x=1#top"},
	}
	for _, tt := range tests {
		if got := resolveReference(base, tt.ref); got != tt.want {
			t.Errorf("resolveReference(%q, %q) = %q, want %q", base, tt.ref, got, tt.want)
		}
	}
}

func TestRootOf(t *testing.T) {
	tests := map[string]string{
		"/runs/abc/x.md": "runs",
		"/fs/a":          "fs",
		"/view/":         "view",
		"/other/x":       "",
		"/runsx/a":       "",
		"":               "",
	}
	for path, want := range tests {
		if got := rootOf(path); got != want {
			t.Errorf("rootOf(%q) = %q, want %q", path, got, want)
		}
	}
}
