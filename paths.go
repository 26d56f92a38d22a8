package main

import (
	"strings"
)

// Logical roots a preview path may live under. Order matters only for display.
var logicalRoots = []string{"runs", "repos", "assets", "fs", "view"}

// normalizePath validates a raw ?p= value and returns a root-relative path.
// An empty result means the input was missing or rejected.
func normalizePath(raw string) string {
	p := strings.TrimSpace(raw)
	if p == "" {
		return ""
	}

	// Coarse on purpose: the file server enforces the real boundary
	if strings.Contains(p, "..") {
		return ""
	}

	if p[0] == '/' {
		return p
	}

	for _, root := range logicalRoots {
		if strings.HasPrefix(p, root+"/") {
			return "/" + p
		}
	}

	// Bare run identifier
	return "/runs/" + p
}

// baseDir returns the directory part of path including the trailing slash.
func baseDir(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i+1]
}

// resolveReference resolves a Markdown link/image target against base.
// No dot-segment handling; query and fragment are kept as written.
func resolveReference(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if isAbsoluteURL(ref) || ref[0] == '/' {
		return ref
	}
	return base + ref
}

func isAbsoluteURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http:") ||
		strings.HasPrefix(lower, "https:") ||
		strings.HasPrefix(lower, "data:")
}

// rootOf returns the logical root a resolved path belongs to, or "" if none.
func rootOf(path string) string {
	rest := strings.TrimPrefix(path, "/")
	name, _, _ := strings.Cut(rest, "/")
	for _, root := range logicalRoots {
		if name == root {
			return root
		}
	}
	return ""
}
