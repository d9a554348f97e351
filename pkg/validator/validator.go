// Package validator structurally checks a rendered prompt against its
// format before it is handed back to the caller. Checks are syntactic
// only; semantic quality of the prompt is out of scope.
package validator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/promptforge/promptforge/models"
)

// Validate runs the format's structural checks over prompt and returns the
// result. Rules from the manifest that the structural pass cannot enforce
// surface as warnings, never errors.
func Validate(format, prompt string, rules []string) *models.ValidationResult {
	res := &models.ValidationResult{Format: format, IsValid: true}

	if strings.TrimSpace(prompt) == "" {
		addError(res, "prompt is empty")
		return res
	}

	switch format {
	case models.FormatJSON:
		validateJSON(prompt, res)
	case models.FormatMarkdown:
		validateMarkdown(prompt, res)
	case models.FormatPlaintext:
		validatePlaintext(prompt, res)
	case models.FormatCLI:
		validateCLI(prompt, res)
	case models.FormatXML:
		validateXML(prompt, res)
	default:
		addError(res, fmt.Sprintf("unknown format %q", format))
		return res
	}

	applyManifestRules(rules, prompt, res)
	return res
}

func validateJSON(prompt string, res *models.ValidationResult) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(prompt), &doc); err != nil {
		addError(res, fmt.Sprintf("not valid JSON: %v", err))
		return
	}
	system, ok := doc["system"].(string)
	if !ok || strings.TrimSpace(system) == "" {
		addError(res, "system must be a non-empty string")
	}
	user, ok := doc["user"].(string)
	if !ok || strings.TrimSpace(user) == "" {
		addError(res, "user must be a non-empty string")
	}
	if ctx, present := doc["context"]; present {
		if _, ok := ctx.(map[string]any); !ok {
			addError(res, "context must be an object when present")
		}
	}
}

var mdTaskHeading = regexp.MustCompile(`(?mi)^#{1,3} (Task|User|Request|Instructions?)\b`)

func validateMarkdown(prompt string, res *models.ValidationResult) {
	if !strings.Contains(prompt, "## System") {
		addError(res, "missing '## System' heading")
	}
	if !mdTaskHeading.MatchString(prompt) {
		addError(res, "missing task heading")
	}
	if !strings.Contains(prompt, "#") {
		addError(res, "no markdown headings at all")
	}
}

var plaintextLabels = []string{"SYSTEM:", "TASK:", "CONTEXT:", "CONSTRAINTS:", "OUTPUT:"}

func validatePlaintext(prompt string, res *models.ValidationResult) {
	for _, label := range plaintextLabels {
		if !strings.Contains(prompt, label) {
			addError(res, fmt.Sprintf("missing %s label", strings.TrimSuffix(label, ":")))
		}
	}
}

func validateCLI(prompt string, res *models.ValidationResult) {
	for _, flag := range []string{"--system", "--task", "--context"} {
		if !strings.Contains(prompt, flag) {
			addError(res, fmt.Sprintf("missing required %s flag", flag))
		}
	}
	// Unbalanced double quotes break the command at the shell.
	if strings.Count(strings.ReplaceAll(prompt, `\"`, ""), `"`)%2 != 0 {
		addWarning(res, "unbalanced double quotes")
	}
	if !strings.Contains(prompt, "--format") {
		addWarning(res, "no --format flag; output format left to tool default")
	}
}

var (
	xmlTagPattern = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9_-]*)[^>]*>`)
)

func validateXML(prompt string, res *models.ValidationResult) {
	if !strings.Contains(prompt, "<system>") {
		addError(res, "missing <system> element")
	}
	if !strings.Contains(prompt, "<user>") {
		addError(res, "missing <user> element")
	}
	if unbalanced := firstUnbalancedTag(prompt); unbalanced != "" {
		addError(res, fmt.Sprintf("mismatched tag <%s>", unbalanced))
	}
	if !strings.HasPrefix(strings.TrimSpace(prompt), "<?xml") {
		addWarning(res, "missing <?xml declaration")
	}
}

// firstUnbalancedTag walks the tags with a stack, skipping self-closing
// tags, the prolog, and comments. Returns "" when everything balances.
func firstUnbalancedTag(s string) string {
	var stack []string
	for _, m := range xmlTagPattern.FindAllStringSubmatch(s, -1) {
		full, name := m[0], m[1]
		if strings.HasSuffix(full, "/>") || strings.HasPrefix(full, "<?") || strings.HasPrefix(full, "<!") {
			continue
		}
		if strings.HasPrefix(full, "</") {
			if len(stack) == 0 {
				return name
			}
			if top := stack[len(stack)-1]; top != name {
				return top
			}
			stack = stack[:len(stack)-1]
			continue
		}
		stack = append(stack, name)
	}
	if len(stack) > 0 {
		return stack[len(stack)-1]
	}
	return ""
}

// applyManifestRules surfaces manifest rule text the structural pass cannot
// mechanically verify. Rules naming a system section get an advisory check.
func applyManifestRules(rules []string, prompt string, res *models.ValidationResult) {
	lower := strings.ToLower(prompt)
	for _, rule := range rules {
		if strings.Contains(strings.ToLower(rule), "system") && !strings.Contains(lower, "system") {
			addWarning(res, fmt.Sprintf("rule possibly unmet: %s", rule))
		}
	}
}

func addError(res *models.ValidationResult, msg string) {
	res.Errors = append(res.Errors, msg)
	res.IsValid = false
}

func addWarning(res *models.ValidationResult, msg string) {
	res.Warnings = append(res.Warnings, msg)
}
