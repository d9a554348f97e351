package detector

import (
	"regexp"
	"strings"

	"github.com/promptforge/promptforge/models"
)

// signal is one scorer's vote: a candidate format, a bounded point value,
// and the names of the matched signals.
type signal struct {
	format  string
	score   int
	methods []string
}

// scorer inspects sampled documentation text independently of the other
// scorers. New scorers plug in without touching the aggregation.
type scorer func(text string) []signal

// defaultScorers is the fixed ensemble, in evaluation order.
var defaultScorers = []scorer{
	scoreFileExtensions,
	scoreCodeFences,
	scoreJSONKeywords,
	scoreMarkdownStructure,
	scoreCLIPatterns,
	scoreFormatKeywords,
}

func capped(n, perHit, max int) int {
	s := n * perHit
	if s > max {
		return max
	}
	return s
}

// scoreFileExtensions counts mentions of format-typical file extensions.
var extensionSignals = []struct {
	pattern *regexp.Regexp
	format  string
	method  string
}{
	{regexp.MustCompile(`\.json\b`), models.FormatJSON, "json-file-extension"},
	{regexp.MustCompile(`\.(md|markdown)\b`), models.FormatMarkdown, "markdown-file-extension"},
	{regexp.MustCompile(`\.xml\b`), models.FormatXML, "xml-file-extension"},
	{regexp.MustCompile(`\.(sh|bash|zsh)\b`), models.FormatCLI, "shell-file-extension"},
	{regexp.MustCompile(`\.txt\b`), models.FormatPlaintext, "text-file-extension"},
}

func scoreFileExtensions(text string) []signal {
	var signals []signal
	for _, es := range extensionSignals {
		if n := len(es.pattern.FindAllStringIndex(text, 6)); n > 0 {
			signals = append(signals, signal{
				format:  es.format,
				score:   capped(n, 3, 15),
				methods: []string{es.method},
			})
		}
	}
	return signals
}

// scoreCodeFences reads fenced-code-block language tags, the strongest
// structural signal documentation carries.
var fenceTag = regexp.MustCompile("(?m)^```([a-zA-Z0-9_+-]+)")

var fenceFormats = map[string]struct {
	format string
	method string
}{
	"json":       {models.FormatJSON, "json-code-fence"},
	"jsonc":      {models.FormatJSON, "json-code-fence"},
	"xml":        {models.FormatXML, "xml-code-fence"},
	"bash":       {models.FormatCLI, "cli-code-fence"},
	"sh":         {models.FormatCLI, "cli-code-fence"},
	"shell":      {models.FormatCLI, "cli-code-fence"},
	"console":    {models.FormatCLI, "cli-code-fence"},
	"zsh":        {models.FormatCLI, "cli-code-fence"},
	"markdown":   {models.FormatMarkdown, "markdown-code-fence"},
	"md":         {models.FormatMarkdown, "markdown-code-fence"},
	"text":       {models.FormatPlaintext, "text-code-fence"},
	"plaintext":  {models.FormatPlaintext, "text-code-fence"},
	"plain-text": {models.FormatPlaintext, "text-code-fence"},
}

func scoreCodeFences(text string) []signal {
	counts := map[string]int{}
	methods := map[string]string{}
	for _, m := range fenceTag.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if ff, ok := fenceFormats[tag]; ok {
			counts[ff.format]++
			methods[ff.format] = ff.method
		}
	}
	var signals []signal
	for format, n := range counts {
		signals = append(signals, signal{
			format:  format,
			score:   capped(n, 10, 30),
			methods: []string{methods[format]},
		})
	}
	return signals
}

// scoreJSONKeywords measures JSON-schema keyword density.
var jsonKeywords = []string{
	`"$schema"`, `"type":`, `"properties"`, `"required"`, `"enum"`,
	`"description":`, `"items"`, `"additionalProperties"`,
}

func scoreJSONKeywords(text string) []signal {
	n := 0
	for _, kw := range jsonKeywords {
		n += strings.Count(text, kw)
	}
	if n == 0 {
		return nil
	}
	return []signal{{
		format:  models.FormatJSON,
		score:   capped(n, 2, 20),
		methods: []string{"json-schema-keywords"},
	}}
}

// scoreMarkdownStructure measures heading, bullet, numbered-list, link,
// and emphasis density.
var (
	mdHeading  = regexp.MustCompile(`(?m)^#{1,6} `)
	mdBullet   = regexp.MustCompile(`(?m)^\s*[-*] `)
	mdNumbered = regexp.MustCompile(`(?m)^\s*\d+\. `)
	mdLink     = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
	mdEmphasis = regexp.MustCompile(`\*\*[^*]+\*\*`)
)

func scoreMarkdownStructure(text string) []signal {
	n := len(mdHeading.FindAllStringIndex(text, -1)) +
		len(mdBullet.FindAllStringIndex(text, 10)) +
		len(mdNumbered.FindAllStringIndex(text, 10)) +
		len(mdLink.FindAllStringIndex(text, 10)) +
		len(mdEmphasis.FindAllStringIndex(text, 10))
	if n == 0 {
		return nil
	}
	return []signal{{
		format:  models.FormatMarkdown,
		score:   capped(n, 1, 25),
		methods: []string{"markdown-structure"},
	}}
}

// scoreCLIPatterns measures shell-prompt lines, long flags, and man-page
// section headers.
var (
	cliPrompt    = regexp.MustCompile(`(?m)^\s*\$ \S+`)
	cliFlag      = regexp.MustCompile(`--[a-z][a-z0-9-]+`)
	cliManHeader = regexp.MustCompile(`(?m)^(SYNOPSIS|OPTIONS|USAGE|EXAMPLES|COMMANDS)\b`)
)

func scoreCLIPatterns(text string) []signal {
	n := len(cliPrompt.FindAllStringIndex(text, 10))*3 +
		len(cliFlag.FindAllStringIndex(text, 15)) +
		len(cliManHeader.FindAllStringIndex(text, 5))*3
	if n == 0 {
		return nil
	}
	score := n
	if score > 25 {
		score = 25
	}
	return []signal{{
		format:  models.FormatCLI,
		score:   score,
		methods: []string{"cli-patterns"},
	}}
}

// scoreFormatKeywords scans for free-text phrases naming a format.
var keywordSignals = []struct {
	phrases []string
	format  string
}{
	{[]string{"json format", "json object", "json payload", "structured json"}, models.FormatJSON},
	{[]string{"markdown format", "markdown file", "in markdown"}, models.FormatMarkdown},
	{[]string{"plain text", "plaintext"}, models.FormatPlaintext},
	{[]string{"command line", "command-line", "terminal command", "cli tool"}, models.FormatCLI},
	{[]string{"xml format", "xml document", "xml tags"}, models.FormatXML},
}

func scoreFormatKeywords(text string) []signal {
	lower := strings.ToLower(text)
	var signals []signal
	for _, ks := range keywordSignals {
		n := 0
		for _, phrase := range ks.phrases {
			n += strings.Count(lower, phrase)
		}
		if n > 0 {
			signals = append(signals, signal{
				format:  ks.format,
				score:   capped(n, 2, 10),
				methods: []string{"format-keywords"},
			})
		}
	}
	return signals
}
