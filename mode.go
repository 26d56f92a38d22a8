package main

import (
	"net/url"
	"strings"
)

// RenderMode selects how a document is presented.
type RenderMode string

const (
	ModeUnset  RenderMode = ""
	ModeRender RenderMode = "render" // structural rendering, locked-down frame for HTML
	ModeCode   RenderMode = "code"   // literal escaped text
	ModeUnsafe RenderMode = "unsafe" // HTML frame with scripts and same-origin access
)

// switchableModes is the order the mode links are shown in.
var switchableModes = []RenderMode{ModeRender, ModeCode, ModeUnsafe}

// parseMode accepts any letter case; unknown values behave as unset.
func parseMode(s string) RenderMode {
	switch m := RenderMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeRender, ModeCode, ModeUnsafe:
		return m
	default:
		return ModeUnset
	}
}

// RequestParams is the immutable view request derived from the query string.
type RequestParams struct {
	RawPath string
	Path    string // normalized; "" when missing or rejected
	Mode    RenderMode
}

func parseRequestParams(q url.Values) RequestParams {
	raw := q.Get("p")
	return RequestParams{
		RawPath: raw,
		Path:    normalizePath(raw),
		Mode:    parseMode(q.Get("mode")),
	}
}

// fileExt returns the lower-cased text after the last dot of path.
func fileExt(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return strings.ToLower(path)
	}
	return strings.ToLower(path[i+1:])
}

func isHTMLExt(ext string) bool     { return ext == "html" || ext == "htm" }
func isMarkdownExt(ext string) bool { return ext == "md" || ext == "markdown" }

func isImageExt(ext string) bool {
	switch ext {
	case "png", "jpg", "jpeg", "gif", "webp", "svg":
		return true
	}
	return false
}

// effectiveMode applies the extension default when no mode was requested.
func effectiveMode(path string, requested RenderMode) RenderMode {
	if requested != ModeUnset {
		return requested
	}
	ext := fileExt(path)
	if isHTMLExt(ext) || isMarkdownExt(ext) {
		return ModeRender
	}
	return ModeCode
}

// modeLink is one mode-switch affordance on the preview page.
type modeLink struct {
	Mode   RenderMode
	URL    string
	Active bool
}

// modeLinks builds the switch links from the current request URL. Each link
// keeps the other query parameters and replaces mode, so following it is a
// fresh load of the viewer rather than an in-place transition.
func modeLinks(current *url.URL, active RenderMode) []modeLink {
	links := make([]modeLink, 0, len(switchableModes))
	for _, m := range switchableModes {
		links = append(links, modeLink{
			Mode:   m,
			URL:    modeSwitchURL(current, m),
			Active: m == active,
		})
	}
	return links
}

func modeSwitchURL(current *url.URL, mode RenderMode) string {
	q := url.Values{}
	if current != nil {
		q = current.Query()
	}
	q.Set("mode", string(mode))
	u := url.URL{Path: "/view/", RawQuery: q.Encode()}
	return u.String()
}
