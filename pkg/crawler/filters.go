package crawler

import (
	"regexp"
	"strings"
)

// nonDocPatterns match URL paths that are never documentation: marketing,
// legal, and news surfaces. A match short-circuits before any network call.
var nonDocPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/blog(/|$)`),
	regexp.MustCompile(`(?i)/pricing(/|$)`),
	regexp.MustCompile(`(?i)/changelog(/|$)`),
	regexp.MustCompile(`(?i)/news(/|$)`),
	regexp.MustCompile(`(?i)/press(/|$)`),
	regexp.MustCompile(`(?i)/legal(/|$)`),
	regexp.MustCompile(`(?i)/terms(/|$)`),
	regexp.MustCompile(`(?i)/privacy(/|$)`),
	regexp.MustCompile(`(?i)/careers?(/|$)`),
	regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|webp|ico)$`),
}

// isNonDocURL reports whether the URL path is on the non-documentation
// blocklist.
func isNonDocURL(pathname string) bool {
	for _, p := range nonDocPatterns {
		if p.MatchString(pathname) {
			return true
		}
	}
	return false
}

// acceptedContentTypes are the only Content-Type prefixes worth parsing.
var acceptedContentTypes = []string{
	"text/html",
	"application/xhtml+xml",
	"text/plain",
	"text/markdown",
}

// isSupportedContentType accepts the allowed MIME prefixes, or markdown and
// text file extensions when the server lies about the type.
func isSupportedContentType(contentType, pathname string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	for _, accepted := range acceptedContentTypes {
		if strings.HasPrefix(ct, accepted) {
			return true
		}
	}
	lower := strings.ToLower(pathname)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown") || strings.HasSuffix(lower, ".txt")
}

// isHTMLContent reports whether the response should go through the HTML
// parser (and is eligible for link discovery).
func isHTMLContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// isMarkdownContent reports whether the response should go through the
// markdown parser.
func isMarkdownContent(contentType, pathname string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "text/markdown") {
		return true
	}
	lower := strings.ToLower(pathname)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}
