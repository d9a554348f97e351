package models

// ParsedDocument is the parser's normalized view of one fetched page:
// plain prose with code fences preserved, plus extraction metadata.
type ParsedDocument struct {
	Title    string           `json:"title"`
	Text     string           `json:"text"`
	Section  string           `json:"section,omitempty"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata carries extraction byproducts that downstream stages
// consume as hints, not authoritative fields.
type DocumentMetadata struct {
	SourceURL   string `json:"source_url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Language    string `json:"language,omitempty"`
	WordCount   int    `json:"word_count"`
}

// NormalizedURL is a canonicalized, policy-filtered URL.
// Invariants: no fragment; query stripped only when configured; trailing
// slash collapsed except on the root path.
type NormalizedURL struct {
	URL          string   `json:"url"`
	Hostname     string   `json:"hostname"`
	Pathname     string   `json:"pathname"`
	PathSegments []string `json:"pathname_segments"`
}
