// Package promptgen walks a manifest's format-preference chain, rendering
// and validating a prompt per format until one passes. Every attempt is
// recorded so a caller can see what was tried and why it failed.
package promptgen

import (
	"fmt"
	"log/slog"

	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/renderer"
	"github.com/promptforge/promptforge/pkg/validator"
)

// Result is a successful generation: the final prompt, the format that
// produced it, and the full attempt log including earlier failures.
type Result struct {
	Prompt   string                     `json:"prompt"`
	Format   string                     `json:"format"`
	Attempts []models.GenerationAttempt `json:"attempts"`
}

// ExhaustedError reports that no format in the manifest produced a valid
// prompt. Attempts holds the complete trial log.
type ExhaustedError struct {
	ToolID   string
	Attempts []models.GenerationAttempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no valid prompt for tool %s after %d format attempts", e.ToolID, len(e.Attempts))
}

// Generator renders prompts against stored manifests.
type Generator struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{logger: logger}
}

// Generate tries the manifest's formats in preference order and stops at
// the first render that validates. Formats without a template are skipped
// with a recorded attempt; exhaustion returns an ExhaustedError carrying
// the log.
func (g *Generator) Generate(manifest *models.IDEManifest, req *models.GenerationRequest) (*Result, error) {
	var attempts []models.GenerationAttempt

	for _, format := range manifest.FormatOrder() {
		template, ok := manifest.Templates[format]
		if !ok {
			attempts = append(attempts, models.GenerationAttempt{
				Format: format,
				Error:  "no template for format",
			})
			continue
		}

		prompt, err := renderer.Render(format, template, req)
		if err != nil {
			g.logger.Warn("render failed", "tool_id", manifest.ID, "format", format, "error", err)
			attempts = append(attempts, models.GenerationAttempt{
				Format: format,
				Error:  err.Error(),
			})
			continue
		}

		res := validator.Validate(format, prompt, rulesForFormat(manifest, format))
		attempt := models.GenerationAttempt{
			Format:     format,
			Success:    res.IsValid,
			Validation: res,
		}
		if !res.IsValid {
			attempt.Error = "validation failed"
			attempts = append(attempts, attempt)
			g.logger.Info("format rejected, trying next",
				"tool_id", manifest.ID, "format", format, "errors", res.Errors)
			continue
		}
		attempts = append(attempts, attempt)

		if len(res.Warnings) > 0 {
			g.logger.Info("prompt validated with warnings",
				"tool_id", manifest.ID, "format", format, "warnings", res.Warnings)
		}
		return &Result{Prompt: prompt, Format: format, Attempts: attempts}, nil
	}

	return nil, &ExhaustedError{ToolID: manifest.ID, Attempts: attempts}
}

// rulesForFormat uses the manifest's rule set only for the format it was
// written for; other formats validate on structure alone.
func rulesForFormat(m *models.IDEManifest, format string) []string {
	if m.Validation.Type == format {
		return m.Validation.Rules
	}
	return nil
}
