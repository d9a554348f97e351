// Package urlnorm canonicalizes, filters, and deduplicates discovered
// links for the crawler: protocol allowlist, same-origin policy, binary
// extension blocklist, and fragment/query/trailing-slash normalization.
package urlnorm

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/promptforge/promptforge/models"
)

// blockedExtensions are binary/media/archive suffixes never worth fetching.
var blockedExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".mjs", ".map",
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".7z", ".rar",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".mp3", ".mp4", ".avi", ".mov", ".webm", ".wav",
	".exe", ".dmg", ".pkg", ".deb", ".rpm", ".msi",
	".woff", ".woff2", ".ttf", ".eot",
}

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// Options control normalization policy.
type Options struct {
	SameOriginOnly    bool
	RemoveQueryParams bool
}

// Normalizer owns the seen-set for one crawl. It is used from a single
// cooperative crawl loop and is not safe for concurrent use.
type Normalizer struct {
	opts Options
	seen map[string]bool
}

// New creates a Normalizer with an empty seen-set.
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts, seen: make(map[string]bool)}
}

// CleanRaw performs copy-paste cleanup on a raw URL string: whitespace,
// markdown link wrappers, and stray trailing punctuation.
func CleanRaw(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	if m := markdownLinkPattern.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}
	for _, ch := range []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"} {
		cleaned = strings.TrimSuffix(cleaned, ch)
	}
	for _, ch := range []string{"(", "[", "<", "\"", "'"} {
		cleaned = strings.TrimPrefix(cleaned, ch)
	}
	return strings.TrimSpace(cleaned)
}

// Sanitize canonicalizes rawURL (resolving it against base when relative)
// and applies policy filters. It returns nil for anything the crawler
// should not queue: bad protocols, cross-origin links in same-origin mode,
// and blocked extensions.
func (n *Normalizer) Sanitize(rawURL, baseURL string) *models.NormalizedURL {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil
	}

	var u *url.URL
	var err error
	if baseURL != "" {
		base, berr := url.Parse(baseURL)
		if berr != nil {
			return nil
		}
		u, err = base.Parse(rawURL)
	} else {
		u, err = url.Parse(rawURL)
	}
	if err != nil {
		return nil
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	if u.Hostname() == "" {
		return nil
	}

	if n.opts.SameOriginOnly && baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil || !strings.EqualFold(base.Hostname(), u.Hostname()) {
			return nil
		}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	for _, blocked := range blockedExtensions {
		if ext == blocked {
			return nil
		}
	}

	u.Fragment = ""
	if n.opts.RemoveQueryParams {
		u.RawQuery = ""
	}
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	return &models.NormalizedURL{
		URL:          u.String(),
		Hostname:     u.Hostname(),
		Pathname:     u.Path,
		PathSegments: segments,
	}
}

// HasSeen reports whether a normalized URL was already queued.
func (n *Normalizer) HasSeen(normalized string) bool {
	return n.seen[normalized]
}

// MarkSeen records a normalized URL so it is never queued twice.
func (n *Normalizer) MarkSeen(normalized string) {
	n.seen[normalized] = true
}

// SeenCount returns the number of distinct URLs marked seen.
func (n *Normalizer) SeenCount() int {
	return len(n.seen)
}
