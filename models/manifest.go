package models

import "fmt"

// IDEManifest is the persisted per-tool record describing the preferred
// prompt format, fallbacks, validation rules, and rendering templates.
// The field names and the five template keys are a stable storage contract.
type IDEManifest struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	PreferredFormat string             `json:"preferred_format"`
	FallbackFormats []string           `json:"fallback_formats"`
	Validation      ManifestValidation `json:"validation"`
	Templates       map[string]string  `json:"templates"`
	DocVersion      string             `json:"doc_version"`
	DocSources      []string           `json:"doc_sources"`
	Trusted         bool               `json:"trusted"`
	LastUpdated     string             `json:"last_updated"`
}

// ManifestValidation holds the format-specific validation rule set.
type ManifestValidation struct {
	Type  string   `json:"type"`
	Rules []string `json:"rules"`
}

// Validate checks the structural invariants enforced at the storage
// boundary: a manifest is deserialized and then validated, never trusted
// as free-form JSON.
func (m *IDEManifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest missing id")
	}
	if m.PreferredFormat == "" {
		return fmt.Errorf("manifest %s missing preferred_format", m.ID)
	}
	if !IsKnownFormat(m.PreferredFormat) {
		return fmt.Errorf("manifest %s: unknown preferred_format %q", m.ID, m.PreferredFormat)
	}
	for _, f := range m.FallbackFormats {
		if !IsKnownFormat(f) {
			return fmt.Errorf("manifest %s: unknown fallback format %q", m.ID, f)
		}
	}
	for key := range m.Templates {
		if !IsKnownFormat(key) {
			return fmt.Errorf("manifest %s: unknown template key %q", m.ID, key)
		}
	}
	return nil
}

// FormatOrder returns the format trial order for prompt generation:
// preferred first, then fallbacks in manifest order, then any remaining
// template keys not yet listed (canonical order).
func (m *IDEManifest) FormatOrder() []string {
	seen := map[string]bool{}
	var order []string
	add := func(f string) {
		if f != "" && !seen[f] {
			seen[f] = true
			order = append(order, f)
		}
	}
	add(m.PreferredFormat)
	for _, f := range m.FallbackFormats {
		add(f)
	}
	for _, f := range KnownFormats {
		if _, ok := m.Templates[f]; ok {
			add(f)
		}
	}
	return order
}
