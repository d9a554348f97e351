// Package renderer fills a manifest template with a concrete generation
// request. Each of the five prompt formats has its own renderer; the JSON
// renderer re-parses its template so the output stays well-formed, the
// text-based ones substitute {{name}} placeholders.
package renderer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/promptforge/promptforge/models"
)

const (
	// maxContextFiles bounds how many attached files are interpolated.
	maxContextFiles = 5
	// maxFileChars truncates each file body before interpolation.
	maxFileChars = 4000
)

// Render fills template with the request fields for one format. An unknown
// format is an error; rendering itself is best-effort and only fails when
// the format requires structure the template cannot supply.
func Render(format, template string, req *models.GenerationRequest) (string, error) {
	switch format {
	case models.FormatJSON:
		return renderJSON(template, req)
	case models.FormatMarkdown, models.FormatPlaintext, models.FormatXML:
		return substitute(template, req), nil
	case models.FormatCLI:
		return renderCLI(template, req)
	}
	return "", fmt.Errorf("render: unknown format %q", format)
}

// renderJSON parses the template, overwrites the user and context fields,
// and re-serializes, so placeholder substitution can never produce broken
// JSON. A template that does not parse falls back to an empty object; the
// structural validator then decides whether the result is usable.
func renderJSON(template string, req *models.GenerationRequest) (string, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(template), &doc); err != nil || doc == nil {
		doc = map[string]any{}
	}
	doc["user"] = req.Task

	context := map[string]any{}
	if req.Language != "" {
		context["language"] = req.Language
	}
	if len(req.Files) > 0 {
		files := make([]map[string]string, 0, len(req.Files))
		for i, f := range req.Files {
			if i >= maxContextFiles {
				break
			}
			files = append(files, map[string]string{
				"path":    f.Path,
				"content": truncate(f.Content, maxFileChars),
			})
		}
		context["files"] = files
	}
	doc["context"] = context

	if len(req.Constraints) > 0 {
		doc["constraints"] = req.Constraints
	}
	for k, v := range req.Extra {
		doc[k] = v
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render json: %w", err)
	}
	return string(out), nil
}

// renderCLI substitutes placeholders with shell-escaped values so the
// rendered command survives double-quoted interpolation.
func renderCLI(template string, req *models.GenerationRequest) (string, error) {
	out := template
	out = strings.ReplaceAll(out, "{{task}}", shellEscape(req.Task))
	out = strings.ReplaceAll(out, "{{context}}", shellEscape(contextText(req)))
	out = strings.ReplaceAll(out, "{{constraints}}", shellEscape(constraintsText(req.Constraints)))
	for k, v := range req.Extra {
		out = strings.ReplaceAll(out, "{{"+k+"}}", shellEscape(v))
	}
	return out, nil
}

// substitute is the plain placeholder pass shared by the markdown,
// plaintext, and XML renderers.
func substitute(template string, req *models.GenerationRequest) string {
	out := template
	out = strings.ReplaceAll(out, "{{task}}", req.Task)
	out = strings.ReplaceAll(out, "{{context}}", contextText(req))
	out = strings.ReplaceAll(out, "{{constraints}}", constraintsText(req.Constraints))
	for k, v := range req.Extra {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

// contextText flattens language and attached files into fenced blocks.
func contextText(req *models.GenerationRequest) string {
	var b strings.Builder
	if req.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", req.Language)
	}
	for i, f := range req.Files {
		if i >= maxContextFiles {
			fmt.Fprintf(&b, "(%d more files omitted)\n", len(req.Files)-maxContextFiles)
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "File: %s\n```%s\n%s\n```\n", f.Path, fenceLanguage(f.Path), truncate(f.Content, maxFileChars))
	}
	if b.Len() == 0 {
		return "(no additional context)"
	}
	return strings.TrimRight(b.String(), "\n")
}

// constraintsText stringifies the constraint map, one "key: value" line per
// entry. Nested objects and arrays render as compact JSON; primitives
// render directly.
func constraintsText(constraints map[string]any) string {
	if len(constraints) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(constraints))
	for k := range constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var lines []string
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, constraintValue(constraints[k])))
	}
	return strings.Join(lines, "\n")
}

func constraintValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", t)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// fenceLanguage guesses a code-fence tag from the file extension.
func fenceLanguage(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	switch strings.ToLower(path[idx+1:]) {
	case "go":
		return "go"
	case "js", "mjs", "cjs":
		return "javascript"
	case "ts", "tsx":
		return "typescript"
	case "py":
		return "python"
	case "rs":
		return "rust"
	case "rb":
		return "ruby"
	case "java":
		return "java"
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "sh", "bash":
		return "bash"
	case "md":
		return "markdown"
	case "html":
		return "html"
	case "css":
		return "css"
	case "sql":
		return "sql"
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}

// shellEscape makes a value safe inside a double-quoted shell argument.
func shellEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
