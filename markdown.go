package main

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// diagramLanguage is the fence tag rendered by the diagram engine instead of as code.
const diagramLanguage = "mermaid"

var (
	fencePattern      = regexp.MustCompile("^```(\\w+)?\\s*$")
	headingPattern    = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	imagePattern      = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	htmlTargetPattern = regexp.MustCompile(`(?i)\.html?$`)
)

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;", "`", "&#96;", placeholderMark, "")
)

// escapeHTML escapes the three characters that can open markup or an entity.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// escapeAttr escapes a value placed inside a double-quoted attribute. Backticks
// are escaped too so inline code spans never start inside an attribute, and
// placeholder marks are dropped so no tag is restored into an attribute.
func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}

// fenceState is the scanner state: Normal (open == false) or InFence{lang}.
type fenceState struct {
	open bool
	lang string
}

func (s fenceState) isDiagram() bool {
	return s.open && s.lang == diagramLanguage
}

// closer returns the markup that ends the currently open block.
func (s fenceState) closer() string {
	if s.isDiagram() {
		return "\n</div>\n"
	}
	return "</code></pre>\n"
}

// translateMarkdown converts the restricted Markdown dialect into an HTML fragment.
// base is the directory relative links and images are resolved against.
func translateMarkdown(text, base string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out strings.Builder
	var state fenceState
	for _, line := range strings.Split(text, "\n") {
		var markup string
		state, markup = translateLine(state, line, base)
		out.WriteString(markup)
	}

	// Unterminated fence keeps its content
	if state.open {
		out.WriteString(state.closer())
	}
	return out.String()
}

// translateLine is the per-line transition: it never looks at other lines.
func translateLine(state fenceState, line, base string) (fenceState, string) {
	if m := fencePattern.FindStringSubmatch(line); m != nil {
		if state.open {
			return fenceState{}, state.closer()
		}
		next := fenceState{open: true, lang: strings.ToLower(m[1])}
		if next.isDiagram() {
			return next, "<div class=\"mermaid\">\n"
		}
		return next, "<pre><code>"
	}

	if state.open {
		// Diagram source goes to the engine as-is; it runs in strict mode
		if state.isDiagram() {
			return state, line + "\n"
		}
		return state, escapeHTML(line) + "\n"
	}

	if m := headingPattern.FindStringSubmatch(line); m != nil {
		level := strconv.Itoa(len(m[1]))
		return state, "<h" + level + ">" + escapeHTML(m[2]) + "</h" + level + ">\n"
	}

	if strings.TrimSpace(line) == "" {
		return state, "<div class=\"spacer\"></div>\n"
	}

	return state, "<p>" + translateInline(line, base) + "</p>\n"
}

// translateInline handles images, links and inline code for one paragraph line.
// Each synthesized tag is swapped for a placeholder before the line is escaped
// and put back by index afterwards, so no source text is ever unescaped.
func translateInline(line, base string) string {
	var tags synthesizedTags
	line = strings.ReplaceAll(line, placeholderMark, "\uFFFD")

	line = imagePattern.ReplaceAllStringFunc(line, func(match string) string {
		m := imagePattern.FindStringSubmatch(match)
		src := resolveReference(base, m[2])
		return tags.add(`<img class="mdimg" src="` + escapeAttr(src) + `" alt="` + escapeAttr(m[1]) + `">`)
	})

	line = linkPattern.ReplaceAllStringFunc(line, func(match string) string {
		m := linkPattern.FindStringSubmatch(match)
		return tags.add(anchorTag(resolveReference(base, m[2]), m[1]))
	})

	return tags.restore(codeSpans(escapeHTML(line)))
}

// codeSpans converts `x` spans of already escaped text into <code>x</code>.
func codeSpans(escaped string) string {
	return inlineCodePattern.ReplaceAllString(escaped, "<code>$1</code>")
}

// anchorTag routes local non-HTML targets back through the viewer. Link text
// keeps image placeholders so an image inside a link survives.
func anchorTag(target, text string) string {
	label := codeSpans(escapeHTML(text))
	if strings.HasPrefix(target, "/") && !htmlTargetPattern.MatchString(target) {
		return `<a href="/view/?p=` + url.QueryEscape(target) + `">` + label + `</a>`
	}
	return `<a href="` + escapeAttr(target) + `" rel="noreferrer">` + label + `</a>`
}

// placeholderMark delimits a tag index. NUL never survives from the source line.
const placeholderMark = "\x00"

// synthesizedTags is the finite set of markup strings the translator produced for a line.
type synthesizedTags struct {
	tags []string
}

// add records tag and returns the placeholder standing in for it.
func (s *synthesizedTags) add(tag string) string {
	s.tags = append(s.tags, tag)
	return placeholderMark + strconv.Itoa(len(s.tags)-1) + placeholderMark
}

// restore puts the recorded tags back. Later tags may embed earlier
// placeholders (an image inside link text), so they are restored first.
func (s *synthesizedTags) restore(line string) string {
	for i := len(s.tags) - 1; i >= 0; i-- {
		line = strings.ReplaceAll(line, placeholderMark+strconv.Itoa(i)+placeholderMark, s.tags[i])
	}
	return line
}
