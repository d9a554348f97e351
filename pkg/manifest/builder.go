// Package manifest builds the persisted per-tool manifest from a format
// detection result and the tool's stored chunks: preferred and fallback
// formats, validation rule sets, and per-format prompt templates.
package manifest

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/promptforge/promptforge/models"
)

// Options configure manifest construction.
type Options struct {
	// TemplatesForAllFormats generates a template for every known format
	// so the generation-time fallback chain always has material; when
	// false only the preferred format gets one.
	TemplatesForAllFormats bool
}

// Builder assembles IDEManifests. Deterministic given its inputs, aside
// from the generated timestamp.
type Builder struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Builder.
func New(opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{opts: opts, logger: logger, now: time.Now}
}

// Build constructs a manifest for one tool. The manifest is rebuilt
// wholesale on every invocation; callers persist it as a unit.
func (b *Builder) Build(toolID, toolName string, detection *models.FormatDetection, chunks []models.Chunk, version string) *models.IDEManifest {
	preferred := detection.PreferredFormat
	if !models.IsKnownFormat(preferred) {
		preferred = models.FormatPlaintext
	}

	var fallbacks []string
	for _, fb := range detection.FallbackFormats {
		if models.IsKnownFormat(fb.Format) && fb.Format != preferred {
			fallbacks = append(fallbacks, fb.Format)
		}
	}

	templates := map[string]string{}
	if b.opts.TemplatesForAllFormats {
		for _, f := range models.KnownFormats {
			templates[f] = generateTemplate(f, toolName)
		}
	} else {
		templates[preferred] = generateTemplate(preferred, toolName)
	}
	b.selfCheckTemplates(toolID, templates)

	if version == "" {
		version = "latest"
	}

	m := &models.IDEManifest{
		ID:              toolID,
		Name:            toolName,
		PreferredFormat: preferred,
		FallbackFormats: fallbacks,
		Validation: models.ManifestValidation{
			Type:  preferred,
			Rules: rulesFor(preferred),
		},
		Templates:   templates,
		DocVersion:  version,
		DocSources:  collectSources(chunks),
		Trusted:     false,
		LastUpdated: b.now().UTC().Format(time.RFC3339),
	}
	return m
}

// collectSources returns the sorted, deduplicated set of non-empty source
// URLs across the chunk sample.
func collectSources(chunks []models.Chunk) []string {
	seen := map[string]bool{}
	sources := []string{}
	for _, ch := range chunks {
		if ch.SourceURL == "" || seen[ch.SourceURL] {
			continue
		}
		seen[ch.SourceURL] = true
		sources = append(sources, ch.SourceURL)
	}
	sort.Strings(sources)
	return sources
}

var slugStrip = regexp.MustCompile(`[^a-z0-9-]+`)

// cliSlug lowercases a tool name into a plausible binary name for the CLI
// template ("Copilot CLI" -> "copilot-cli").
func cliSlug(toolName string) string {
	s := strings.ToLower(strings.TrimSpace(toolName))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugStrip.ReplaceAllString(s, "")
	s = strings.Trim(s, "-")
	if s == "" {
		return "tool"
	}
	return s
}

var xmlTag = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9_-]*)[^>]*>`)

// selfCheckTemplates runs a best-effort structural sanity pass over the
// generated templates. Failures are logged as warnings, never raised:
// a malformed template must not abort manifest construction.
func (b *Builder) selfCheckTemplates(toolID string, templates map[string]string) {
	for format, tmpl := range templates {
		var problem string
		switch format {
		case models.FormatJSON:
			var v any
			if err := json.Unmarshal([]byte(tmpl), &v); err != nil {
				problem = "template is not valid JSON"
			}
		case models.FormatMarkdown:
			if !strings.Contains(tmpl, "## ") {
				problem = "template has no markdown header"
			}
		case models.FormatXML:
			if !xmlTagsBalanced(tmpl) {
				problem = "template tags do not balance"
			}
		case models.FormatPlaintext:
			if !strings.Contains(tmpl, "SYSTEM:") {
				problem = "template missing SYSTEM label"
			}
		case models.FormatCLI:
			if !strings.Contains(tmpl, "--task") {
				problem = "template missing --task flag"
			}
		}
		if problem != "" {
			b.logger.Warn("generated template failed self-check",
				"tool_id", toolID, "format", format, "problem", problem)
		}
	}
}

// xmlTagsBalanced does a stack walk over tags, skipping self-closing ones
// and the XML prolog.
func xmlTagsBalanced(s string) bool {
	var stack []string
	for _, m := range xmlTag.FindAllStringSubmatch(s, -1) {
		full, name := m[0], m[1]
		if strings.HasSuffix(full, "/>") || strings.HasPrefix(full, "<?") {
			continue
		}
		if strings.HasPrefix(full, "</") {
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return false
			}
			stack = stack[:len(stack)-1]
			continue
		}
		stack = append(stack, name)
	}
	return len(stack) == 0
}
