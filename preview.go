package main

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
)

const (
	hintTitle   = "View (missing/invalid ?p=)"
	hintExample = "/view/?p=/runs/<run-id>/report.md"

	sandboxLocked = ""
	sandboxUnsafe = "allow-scripts allow-same-origin"
)

type previewKind string

const (
	kindHint     previewKind = "hint"
	kindSandbox  previewKind = "sandbox"
	kindImage    previewKind = "image"
	kindMarkdown previewKind = "markdown"
	kindCode     previewKind = "code"
)

// Preview is everything the page template needs to show one document.
type Preview struct {
	Kind previewKind
	Path string
	Mode RenderMode
	Meta string

	Sandbox  string // iframe sandbox attribute
	SrcDoc   string // plain string: html/template escapes it as an attribute value
	ImageSrc string
	Fragment template.HTML
	Code     template.HTML
	Hint     template.HTML

	// Enhance asks the page to run the diagram and math engines.
	Enhance bool
}

// Title is shown in the header and the document title.
func (p *Preview) Title() string {
	if p.Kind == kindHint {
		return hintTitle
	}
	return p.Path
}

type previewRenderer struct {
	fetcher   contentFetcher
	highlight *codeHighlighter   // nil: code is escaped only
	policy    *bluemonday.Policy // nil: translator output is used as is
	usage     template.HTML
	verbose   bool
}

// Render never fails: every error ends up as an escaped code display.
func (pr *previewRenderer) Render(ctx context.Context, params RequestParams) (preview *Preview) {
	if params.Path == "" {
		return pr.hint()
	}

	path := params.Path
	mode := effectiveMode(path, params.Mode)

	defer func() {
		if err := recover(); err != nil {
			log.Printf("PANIC rendering %s: %v\n%s", path, err, debug.Stack())
			preview = failurePreview(path, mode, fmt.Errorf("%v", err))
		}
	}()

	p, err := pr.render(ctx, path, mode)
	if err != nil {
		log.Printf("Preview of %s failed: %v", path, err)
		return failurePreview(path, mode, err)
	}
	if pr.verbose {
		log.Printf("Preview %s mode=%s kind=%s", path, mode, p.Kind)
	}
	return p
}

func (pr *previewRenderer) hint() *Preview {
	return &Preview{
		Kind: kindHint,
		Meta: "Example: " + hintExample,
		Hint: pr.usage,
	}
}

func (pr *previewRenderer) render(ctx context.Context, path string, mode RenderMode) (*Preview, error) {
	ext := fileExt(path)

	if isHTMLExt(ext) && (mode == ModeRender || mode == ModeUnsafe) {
		return pr.renderSandbox(ctx, path, mode)
	}
	if isImageExt(ext) {
		return &Preview{
			Kind:     kindImage,
			Path:     path,
			Mode:     mode,
			Meta:     "image preview · " + path,
			ImageSrc: path,
		}, nil
	}

	res, err := pr.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	meta := fetchMeta(res, mode)
	if !res.OK() {
		return codePreview(path, mode, meta, template.HTML(escapeHTML(string(res.Body)))), nil
	}

	if isMarkdownExt(ext) && mode == ModeRender {
		fragment := translateMarkdown(string(res.Body), baseDir(path))
		if pr.policy != nil {
			fragment = pr.policy.Sanitize(fragment)
		}
		return &Preview{
			Kind:     kindMarkdown,
			Path:     path,
			Mode:     mode,
			Meta:     meta,
			Fragment: template.HTML(fragment),
			Enhance:  true,
		}, nil
	}

	code, ok := pr.highlight.Highlight(path, string(res.Body))
	if !ok {
		code = template.HTML(escapeHTML(string(res.Body)))
	}
	return codePreview(path, mode, meta, code), nil
}

func (pr *previewRenderer) renderSandbox(ctx context.Context, path string, mode RenderMode) (*Preview, error) {
	res, err := pr.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return codePreview(path, mode, fetchMeta(res, mode), template.HTML(escapeHTML(string(res.Body)))), nil
	}

	sandbox := sandboxLocked
	if mode == ModeUnsafe {
		sandbox = sandboxUnsafe
	}
	meta := "mode=" + string(mode) + " (srcdoc) · " + path
	if res.Truncated {
		meta += " · truncated"
	}
	return &Preview{
		Kind:    kindSandbox,
		Path:    path,
		Mode:    mode,
		Meta:    meta,
		Sandbox: sandbox,
		SrcDoc:  rewriteOrigins(string(res.Body)),
	}, nil
}

// fetchMeta formats the status line shown above fetched content.
func fetchMeta(res *fetchResult, mode RenderMode) string {
	ctype := res.ContentType
	if ctype == "" {
		ctype = "(no content-type)"
	}
	meta := "HTTP " + strconv.Itoa(res.Status) + " · " + ctype + " · mode=" + string(mode)
	if res.Truncated {
		meta += " · truncated"
	}
	return meta
}

func codePreview(path string, mode RenderMode, meta string, code template.HTML) *Preview {
	return &Preview{
		Kind: kindCode,
		Path: path,
		Mode: mode,
		Meta: meta,
		Code: code,
	}
}

func failurePreview(path string, mode RenderMode, err error) *Preview {
	return codePreview(path, mode, "error · mode="+string(mode), template.HTML(escapeHTML(err.Error())))
}
