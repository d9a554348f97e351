package models

// GenerationRequest is the concrete payload a template is filled with.
type GenerationRequest struct {
	ToolID      string            `json:"tool_id"`
	ToolName    string            `json:"tool_name"`
	Task        string            `json:"task"`
	Language    string            `json:"language,omitempty"`
	Files       []FileContext     `json:"files,omitempty"`
	Constraints map[string]any    `json:"constraints,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// FileContext is one file attached to a generation request.
type FileContext struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ValidationResult is the outcome of structural validation of one rendered
// prompt. Warnings are advisory; only Errors make the attempt invalid.
type ValidationResult struct {
	Format   string   `json:"format"`
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// GenerationAttempt is one element of the ordered trial log produced while
// walking the manifest's format-preference chain.
type GenerationAttempt struct {
	Format     string            `json:"format"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Validation *ValidationResult `json:"validation,omitempty"`
}
