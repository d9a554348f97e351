package models

// Prompt format identifiers. These five strings are a stable storage format
// shared with the manifest consumers; do not rename.
const (
	FormatJSON      = "json"
	FormatMarkdown  = "markdown"
	FormatPlaintext = "plaintext"
	FormatCLI       = "cli"
	FormatXML       = "xml"
)

// KnownFormats lists every recognized prompt format in canonical order.
var KnownFormats = []string{FormatJSON, FormatMarkdown, FormatPlaintext, FormatCLI, FormatXML}

// IsKnownFormat reports whether f is one of the five recognized formats.
func IsKnownFormat(f string) bool {
	for _, k := range KnownFormats {
		if f == k {
			return true
		}
	}
	return false
}

// FormatDetection is the output of one format-detection pass over a tool's
// sampled documentation.
type FormatDetection struct {
	PreferredFormat  string             `json:"preferred_format"`
	ConfidenceScore  int                `json:"confidence_score"`
	DetectionMethods []string           `json:"detection_methods_used"`
	FallbackFormats  []FormatConfidence `json:"fallback_formats"`
}

// FormatConfidence pairs a fallback format with its aggregate score.
type FormatConfidence struct {
	Format     string `json:"format"`
	Confidence int    `json:"confidence"`
}
