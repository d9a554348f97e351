package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promptforge/promptforge/models"
)

// generateTemplate produces the fixed boilerplate template for one format.
// Placeholders use {{name}} markers the renderer understands; the JSON
// template is real JSON the renderer re-parses. The tool name is escaped
// per format so quotes or angle brackets in a display name cannot break
// the template's structure.
func generateTemplate(format, toolName string) string {
	switch format {
	case models.FormatJSON:
		system, err := json.Marshal(fmt.Sprintf(
			"You are %s, an expert AI coding assistant. Follow the task precisely and respect every constraint.", toolName))
		if err != nil {
			return ""
		}
		return fmt.Sprintf(`{
  "system": %s,
  "user": "{{task}}",
  "context": {}
}`, system)

	case models.FormatMarkdown:
		return fmt.Sprintf(`## System

You are %s, an expert AI coding assistant. Follow the task precisely and respect every constraint.

## Task

{{task}}

## Context

{{context}}

## Constraints

{{constraints}}`, toolName)

	case models.FormatPlaintext:
		return fmt.Sprintf(`SYSTEM:
You are %s, an expert AI coding assistant.

TASK:
{{task}}

CONTEXT:
{{context}}

CONSTRAINTS:
{{constraints}}

OUTPUT:
Respond with the complete solution.`, toolName)

	case models.FormatCLI:
		return fmt.Sprintf(`%s generate --system "You are an expert AI coding assistant." --task "{{task}}" --context "{{context}}" --format code`, cliSlug(toolName))

	case models.FormatXML:
		return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<prompt>
  <system>You are %s, an expert AI coding assistant. Follow the task precisely.</system>
  <user>{{task}}</user>
  <context>{{context}}</context>
  <constraints>{{constraints}}</constraints>
</prompt>`, xmlEscaper.Replace(toolName))
	}
	return ""
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// sharedRules apply to every format's validation set.
var sharedRules = []string{
	"must have both system and user sections",
	"must state the task explicitly",
	"must not be empty",
}

// formatRules are the format-specific static validation rule sets the
// prompt validator enforces structurally at generation time.
var formatRules = map[string][]string{
	models.FormatJSON: {
		"must parse as valid JSON",
		"system and user must be non-empty strings",
		"context, when present, must be an object",
	},
	models.FormatMarkdown: {
		"must contain a '## System' heading",
		"must contain a task heading",
	},
	models.FormatPlaintext: {
		"must contain SYSTEM, TASK, CONTEXT, CONSTRAINTS, and OUTPUT labels",
	},
	models.FormatCLI: {
		"must include --system, --task, and --context flags",
		"interpolated values must be quote-escaped",
	},
	models.FormatXML: {
		"must contain <system> and <user> elements",
		"tags must balance",
	},
}

// rulesFor combines the shared baseline with the format-specific set.
func rulesFor(format string) []string {
	rules := make([]string, 0, len(sharedRules)+len(formatRules[format]))
	rules = append(rules, sharedRules...)
	rules = append(rules, formatRules[format]...)
	return rules
}
