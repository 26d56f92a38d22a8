package main

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"log"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed theme/*
var themeFS embed.FS

var (
	// Page template, CSS, and JavaScript (loaded once at startup)
	viewCSS  string
	viewJS   string
	viewTmpl *template.Template

	// Usage text shown on the hint page, rendered from theme/usage.md
	usageHTML template.HTML
)

func init() {
	cssData, err := themeFS.ReadFile("theme/view.css")
	if err != nil {
		log.Fatalf("Failed to load view CSS: %v", err)
	}
	viewCSS = string(cssData)

	jsData, err := themeFS.ReadFile("theme/view.js")
	if err != nil {
		log.Fatalf("Failed to load view JS: %v", err)
	}
	viewJS = string(jsData)

	viewHTML, err := themeFS.ReadFile("theme/view.html")
	if err != nil {
		log.Fatalf("Failed to load view template: %v", err)
	}
	viewTmpl = template.Must(template.New("view").Parse(string(viewHTML)))

	usageData, err := themeFS.ReadFile("theme/usage.md")
	if err != nil {
		log.Fatalf("Failed to load usage text: %v", err)
	}
	var buf bytes.Buffer
	if err := newMarkdownRenderer().Convert(usageData, &buf); err != nil {
		log.Fatalf("Failed to render usage text: %v", err)
	}
	// Trusted: rendered from an embedded file without raw HTML passthrough.
	usageHTML = template.HTML(buf.String())
}

// newMarkdownRenderer creates the goldmark renderer for embedded help text.
// Raw HTML in the source is omitted.
func newMarkdownRenderer() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// minifyAsset shrinks an embedded asset, keeping the original on failure.
func minifyAsset(m *minify.M, mediatype, name, raw string) string {
	out, err := m.String(mediatype, raw)
	if err != nil {
		log.Printf("Warning: minify %s: %v (using original)", name, err)
		return raw
	}
	return out
}

// pageAssets is the per-server rendition of the embedded page: minified
// styles including the highlighter's token classes, the page script, and
// the optional engine URLs.
type pageAssets struct {
	css     template.CSS
	js      template.JS
	engines MarkdownConfig
}

func newPageAssets(h *codeHighlighter, engines MarkdownConfig) *pageAssets {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	return &pageAssets{
		css:     template.CSS(minifyAsset(m, "text/css", "view.css", viewCSS+"\n"+h.CSS())),
		js:      template.JS(minifyAsset(m, "application/javascript", "view.js", viewJS)),
		engines: engines,
	}
}

// pageTemplateData feeds theme/view.html.
type pageTemplateData struct {
	Theme     string
	Nonce     string
	CSS       template.CSS
	JS        template.JS
	Preview   *Preview
	Modes     []modeLink
	RawURL    string
	EventsURL string
	Engines   MarkdownConfig
}

// pageData assembles the template input; Engines stay empty unless the
// preview asks for enhancement.
func (a *pageAssets) pageData(preview *Preview, modes []modeLink, theme, nonce, eventsURL string) pageTemplateData {
	data := pageTemplateData{
		Theme:     theme,
		Nonce:     nonce,
		CSS:       a.css,
		JS:        a.js,
		Preview:   preview,
		Modes:     modes,
		EventsURL: eventsURL,
	}
	if preview.Kind != kindHint {
		data.RawURL = preview.Path
	}
	if preview.Enhance {
		data.Engines = a.engines
	}
	return data
}

func writePage(w io.Writer, data pageTemplateData) error {
	return viewTmpl.Execute(w, data)
}
