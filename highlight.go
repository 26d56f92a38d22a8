package main

import (
	"bytes"
	"html/template"
	"path"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// codeHighlighter renders code-mode text as class-annotated spans. The token
// text is escaped by the formatter, so its output is safe to embed.
type codeHighlighter struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func newCodeHighlighter(styleName string) *codeHighlighter {
	return &codeHighlighter{
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
		style: styles.Get(styleName),
	}
}

// Highlight picks a lexer from the file name. ok is false when no lexer
// matches or formatting fails; callers fall back to plain escaping.
func (h *codeHighlighter) Highlight(filePath, source string) (template.HTML, bool) {
	if h == nil {
		return "", false
	}
	lexer := lexers.Match(path.Base(filePath))
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", false
	}
	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", false
	}
	return template.HTML(buf.String()), true
}

// CSS returns the stylesheet for the token classes.
func (h *codeHighlighter) CSS() string {
	if h == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := h.formatter.WriteCSS(&buf, h.style); err != nil {
		return ""
	}
	return buf.String()
}
