package renderer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/promptforge/promptforge/models"
)

func baseRequest() *models.GenerationRequest {
	return &models.GenerationRequest{
		ToolID:   "cursor",
		ToolName: "Cursor",
		Task:     "add a retry wrapper",
		Language: "go",
		Files: []models.FileContext{
			{Path: "client.go", Content: "package client\n"},
		},
		Constraints: map[string]any{
			"max_lines": 80,
			"style":     "idiomatic",
		},
	}
}

func TestRenderJSON_ProducesValidJSON(t *testing.T) {
	template := `{"system": "You are Cursor.", "user": "{{task}}", "context": {}}`
	out, err := Render(models.FormatJSON, template, baseRequest())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if doc["user"] != "add a retry wrapper" {
		t.Errorf("user = %v, want task text", doc["user"])
	}
	if doc["system"] != "You are Cursor." {
		t.Errorf("system = %v, want template system preserved", doc["system"])
	}
	ctx, ok := doc["context"].(map[string]any)
	if !ok {
		t.Fatalf("context = %T, want object", doc["context"])
	}
	if ctx["language"] != "go" {
		t.Errorf("context.language = %v, want go", ctx["language"])
	}
}

func TestRenderJSON_TaskWithQuotesStaysValid(t *testing.T) {
	req := baseRequest()
	req.Task = `print "hello" and a backslash \`
	out, err := Render(models.FormatJSON, `{"system": "s", "user": "{{task}}", "context": {}}`, req)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output broke on special characters: %v", err)
	}
	if doc["user"] != req.Task {
		t.Errorf("user = %v, want round-tripped task", doc["user"])
	}
}

func TestRenderJSON_UnparseableTemplateFallsBackToEmptyObject(t *testing.T) {
	for _, template := range []string{"", "not json at all", "null"} {
		out, err := Render(models.FormatJSON, template, baseRequest())
		if err != nil {
			t.Fatalf("Render(%q) error = %v", template, err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			t.Fatalf("fallback output not valid JSON: %v", err)
		}
		if doc["user"] != "add a retry wrapper" {
			t.Errorf("user = %v, want task text", doc["user"])
		}
		// The fallback must not invent fields the template never had:
		// a missing system is for the validator to reject.
		if _, ok := doc["system"]; ok {
			t.Errorf("fallback synthesized system = %v, want absent", doc["system"])
		}
	}
}

func TestRenderMarkdown_SubstitutesPlaceholders(t *testing.T) {
	template := "## System\nx\n\n## Task\n\n{{task}}\n\n## Context\n\n{{context}}\n\n## Constraints\n\n{{constraints}}"
	out, err := Render(models.FormatMarkdown, template, baseRequest())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(out, "{{") {
		t.Errorf("unsubstituted placeholder left in output:\n%s", out)
	}
	if !strings.Contains(out, "add a retry wrapper") {
		t.Error("task text missing")
	}
	if !strings.Contains(out, "```go\npackage client") {
		t.Errorf("file context not fenced with language tag:\n%s", out)
	}
	if !strings.Contains(out, "- max_lines: 80") || !strings.Contains(out, "- style: idiomatic") {
		t.Errorf("constraints not stringified:\n%s", out)
	}
}

func TestRenderCLI_EscapesQuotesAndNewlines(t *testing.T) {
	req := baseRequest()
	req.Task = "say \"hi\"\nthen stop"
	template := `cursor generate --system "s" --task "{{task}}" --context "{{context}}"`
	out, err := Render(models.FormatCLI, template, req)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, `say \"hi\"\nthen stop`) {
		t.Errorf("task not shell-escaped: %s", out)
	}
}

func TestRender_ContextFileCap(t *testing.T) {
	req := baseRequest()
	req.Files = nil
	for i := 0; i < maxContextFiles+3; i++ {
		req.Files = append(req.Files, models.FileContext{Path: "f.go", Content: "x"})
	}
	out, err := Render(models.FormatPlaintext, "CONTEXT:\n{{context}}", req)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "3 more files omitted") {
		t.Errorf("file cap note missing:\n%s", out)
	}
}

func TestRender_FileTruncation(t *testing.T) {
	req := baseRequest()
	req.Files = []models.FileContext{{Path: "big.go", Content: strings.Repeat("a", maxFileChars+100)}}
	out, err := Render(models.FormatMarkdown, "{{context}}", req)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "(truncated)") {
		t.Error("oversized file not truncated")
	}
}

func TestRender_ConstraintObjectsAsJSON(t *testing.T) {
	req := baseRequest()
	req.Constraints = map[string]any{
		"deps": []string{"stdlib"},
	}
	out, err := Render(models.FormatXML, "<constraints>{{constraints}}</constraints>", req)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, `deps: ["stdlib"]`) {
		t.Errorf("array constraint not JSON-encoded:\n%s", out)
	}
}

func TestRender_EmptyContextPlaceholderText(t *testing.T) {
	req := &models.GenerationRequest{ToolID: "t", ToolName: "T", Task: "do it"}
	out, err := Render(models.FormatPlaintext, "CONTEXT:\n{{context}}\nCONSTRAINTS:\n{{constraints}}", req)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "(no additional context)") || !strings.Contains(out, "(none)") {
		t.Errorf("empty sections not labelled:\n%s", out)
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if _, err := Render("yaml", "x", baseRequest()); err == nil {
		t.Error("Render() with unknown format succeeded, want error")
	}
}
