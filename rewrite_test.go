package main

import "testing"

func TestRewriteOrigins_UntouchedWithoutSignals(t *testing.T) {
	if got := rewriteOrigins(testHTMLPlain); got != testHTMLPlain {
		t.Errorf("document changed without a trigger signal:\n%s", got)
	}
}

func TestRewriteOrigins_CapturedSite(t *testing.T) {
	got := rewriteOrigins(testHTMLCaptured)
	assertContains(t, got, `href="https://www.bls.gov/stylesheets/main.css"`)
	assertContains(t, got, `src="https://www.bls.gov/javascripts/app.js"`)
	assertContains(t, got, `src="https://www.bls.gov/images/x.png"`)
}

func TestRewriteOrigins_ImagesRequireSignal(t *testing.T) {
	// The asset directory pattern is itself a trigger signal
	got := rewriteOrigins(`<img src="/images/x.png">`)
	assertContains(t, got, `src="https://www.bls.gov/images/x.png"`)

	// Other root-relative images are left alone
	plain := `<img src="/img/x.png">`
	if got := rewriteOrigins(plain); got != plain {
		t.Errorf("got %q", got)
	}
}

func TestRewriteOrigins_KeywordSignalAndFavicon(t *testing.T) {
	in := `<link rel="icon" href='/favicon.ico'><meta name="bls_page">`
	got := rewriteOrigins(in)
	assertContains(t, got, `href='https://www.bls.gov/favicon.ico'`)

	// No signal: favicon stays local
	plain := `<link rel="icon" href="/favicon.ico">`
	if got := rewriteOrigins(plain); got != plain {
		t.Errorf("got %q", got)
	}
}

func TestRewriteOrigins_KeepsQuoteCharacter(t *testing.T) {
	got := rewriteOrigins(`<img src='/images/a.png'><p>bls.gov</p>`)
	assertContains(t, got, `src='https://www.bls.gov/images/a.png'`)
}

func TestRewriteOrigins_PinnedAssets(t *testing.T) {
	got := rewriteOrigins(testHTMLBootstrap)
	assertContains(t, got, `'https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.min.js'`)
	assertContains(t, got, `"https://cdn.jsdelivr.net/npm/@popperjs/core@2.11.8/dist/umd/popper.min.js"`)
	assertNotContains(t, got, "/assets/bootstrap/latest/")
}

func TestRewriteOrigins_PinnedAssetNeedsMatchingQuotes(t *testing.T) {
	in := `<script src="/assets/bootstrap/latest/popper.min.js'></script>`
	if got := rewriteOrigins(in); got != in {
		t.Errorf("mismatched quotes should not be rewritten: %q", got)
	}
}

func TestRewriteOrigins_JQueryOutsideAttribute(t *testing.T) {
	got := rewriteOrigins(`<script>load('/javascripts/jquery-latest.js')</script>`)
	assertContains(t, got, `'https://code.jquery.com/jquery-3.7.1.min.js'`)
}
