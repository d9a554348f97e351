package crawler

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/promptforge/promptforge/models"
)

// DefaultVersion is used when no version signal is found anywhere.
const DefaultVersion = "latest"

var (
	// Path segments and query values like v2, v1.2, 2.3.1.
	versionSegment = regexp.MustCompile(`^v?\d+(\.\d+){0,2}$`)
	// Version phrases in prose require a cue word so arbitrary N.N.N
	// strings in body text don't win. Detected versions stay best-effort
	// hints either way.
	versionPhrase = regexp.MustCompile(`(?i)\b(?:v|version\s+|release\s+)(\d+(?:\.\d+){0,2})\b`)
	bareVersion   = regexp.MustCompile(`\b\d+\.\d+(\.\d+)?\b`)
)

// detectVersion resolves the documentation version for a page, in order:
// a version-like path segment or query parameter, then a version phrase in
// the title/section/leading content, then "latest". Bare numbers in the
// calendar-year range 2000-2099 never count.
func detectVersion(u *models.NormalizedURL, doc *models.ParsedDocument, rawQuery map[string][]string) string {
	for _, seg := range u.PathSegments {
		if v, ok := versionFromToken(seg); ok {
			return v
		}
	}
	for _, key := range []string{"version", "v"} {
		for _, val := range rawQuery[key] {
			if v, ok := versionFromToken(val); ok {
				return v
			}
		}
	}

	// Title and section may carry a bare version number; body text needs
	// a cue prefix.
	for _, text := range []string{doc.Title, doc.Section} {
		if m := versionPhrase.FindStringSubmatch(text); m != nil {
			if v, ok := versionFromToken(m[1]); ok {
				return v
			}
		}
		if m := bareVersion.FindString(text); m != "" {
			if v, ok := versionFromToken(m); ok {
				return v
			}
		}
	}

	leading := doc.Text
	if len(leading) > 500 {
		leading = leading[:500]
	}
	if m := versionPhrase.FindStringSubmatch(leading); m != nil {
		if v, ok := versionFromToken(m[1]); ok {
			return v
		}
	}

	return DefaultVersion
}

// versionFromToken validates one candidate token, rejecting bare numbers
// that look like calendar years.
func versionFromToken(tok string) (string, bool) {
	tok = strings.TrimSpace(tok)
	if !versionSegment.MatchString(tok) {
		return "", false
	}
	digits := strings.TrimPrefix(tok, "v")
	if !strings.Contains(digits, ".") {
		n, err := strconv.Atoi(digits)
		if err != nil {
			return "", false
		}
		if n >= 2000 && n <= 2099 {
			return "", false
		}
		// A lone small integer is only a version with the v prefix.
		if !strings.HasPrefix(tok, "v") {
			return "", false
		}
	}
	return digits, true
}
