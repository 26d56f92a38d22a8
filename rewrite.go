package main

import (
	"regexp"
)

// capturedSiteOrigin is where captured pages of the known external site load their assets from.
const capturedSiteOrigin = "https://www.bls.gov"

var (
	capturedSiteSignals = []*regexp.Regexp{
		regexp.MustCompile(`(?i)bls\.gov|bls_`),
		regexp.MustCompile(`(?i)/(javascripts|stylesheets|images)/`),
	}

	capturedSiteRules = []originRule{
		{regexp.MustCompile(`(?i)(src|href)=(["'])/(javascripts|stylesheets|images)/`), `${1}=${2}` + capturedSiteOrigin + `/${3}/`},
		{regexp.MustCompile(`(?i)(src|href)=(["'])/favicon\.ico`), `${1}=${2}` + capturedSiteOrigin + `/favicon.ico`},
	}

	// Local bootstrap/jquery copies that were never archived, pinned to CDN builds.
	pinnedAssets = []struct{ path, target string }{
		{`/assets/bootstrap/latest/bootstrap\.min\.js`, "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/js/bootstrap.min.js"},
		{`/assets/bootstrap/latest/popper\.min\.js`, "https://cdn.jsdelivr.net/npm/@popperjs/core@2.11.8/dist/umd/popper.min.js"},
		{`/javascripts/jquery-latest\.js`, "https://code.jquery.com/jquery-3.7.1.min.js"},
	}

	pinnedAssetRules = buildPinnedAssetRules()
)

// originRule is one literal substitution applied to the raw document text.
type originRule struct {
	pattern     *regexp.Regexp
	replacement string
}

func (r originRule) apply(html string) string {
	return r.pattern.ReplaceAllString(html, r.replacement)
}

// buildPinnedAssetRules matches each quoted asset path and keeps the quote character.
// RE2 has no backreferences, so each quote style gets its own pattern.
func buildPinnedAssetRules() []originRule {
	var rules []originRule
	for _, asset := range pinnedAssets {
		for _, q := range []string{`"`, `'`} {
			rules = append(rules, originRule{
				pattern:     regexp.MustCompile(`(?i)` + q + asset.path + q),
				replacement: q + asset.target + q,
			})
		}
	}
	return rules
}

// looksLikeCapturedSite reports whether the document carries any captured-site signal.
func looksLikeCapturedSite(html string) bool {
	for _, signal := range capturedSiteSignals {
		if signal.MatchString(html) {
			return true
		}
	}
	return false
}

// rewriteOrigins points root-relative asset references that are known to be
// missing locally at their public origin. Text substitution only; no parsing.
func rewriteOrigins(html string) string {
	if looksLikeCapturedSite(html) {
		for _, rule := range capturedSiteRules {
			html = rule.apply(html)
		}
	}
	for _, rule := range pinnedAssetRules {
		html = rule.apply(html)
	}
	return html
}
