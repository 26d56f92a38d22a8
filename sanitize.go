package main

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// newFragmentPolicy allows exactly the markup the translator emits. It is
// applied to every fragment when markdown.sanitize is on.
func newFragmentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6", "p", "pre", "code", "div")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(mermaid|spacer)$`)).OnElements("div")

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^mdimg$`)).OnElements("img")
	p.AllowDataURIImages()

	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^noreferrer$`)).OnElements("a")

	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(true)
	p.RequireParseableURLs(true)

	return p
}
