package main

// Test content constants
// These eliminate magic values scattered throughout test files

const (
	// Markdown in the restricted dialect
	testMarkdownHeading   = "### Title <script>"
	testMarkdownImage     = "![x](pic.png)"
	testMarkdownLocalLink = "[doc](notes.md)"
	testMarkdownHTMLLink  = "[page](page.html)"
	testMarkdownMermaid   = "```mermaid\ngraph TD; A-->B\n```"
	testMarkdownCode      = "```go\nif a < b && c > d {}\n```"

	testMarkdownReport = `# Report

Run finished. See [details](details.md) and ![chart](chart.png).

` + "```mermaid\ngraph LR; A-->B\n```"

	// HTML documents
	testHTMLPlain    = `<html><head><link href="/img/site.css"></head><body><p>hi</p></body></html>`
	testHTMLCaptured = `<html><head><link href="/stylesheets/main.css"><script src="/javascripts/app.js"></script></head>` +
		`<body><img src="/images/x.png"><!-- captured from bls.gov --></body></html>`
	testHTMLBootstrap = `<script src='/assets/bootstrap/latest/bootstrap.min.js'></script>` +
		`<script src="/assets/bootstrap/latest/popper.min.js"></script>`

	// Paths
	testPathTraversal = "../../../etc/passwd"
	testPathRunID     = "abc123/report.md"
)
