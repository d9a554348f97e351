// Package generate implements the generate verb: render a task into the
// target tool's preferred prompt format using its stored manifest.
package generate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/promptforge/promptforge/internal/common"
	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/promptgen"
)

func GenerateAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	toolID := c.String("tool")
	task := c.String("task")
	if toolID == "" || task == "" {
		fmt.Fprintln(os.Stderr, "Error: --tool and --task are required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  promptforge generate --tool cursor --task "add input validation"`)
		fmt.Fprintln(os.Stderr, `  promptforge generate --tool cursor --task "..." --file handler.go --language go`)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	database, err := common.OpenDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	manifest, err := database.GetManifest(c.Context, toolID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Build one first: promptforge manifest build --tools %s\n", toolID)
		os.Exit(1)
	}

	req, err := buildRequest(c, manifest, task)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := promptgen.New(logger).Generate(manifest, req)
	if err != nil {
		if ex, ok := err.(*promptgen.ExhaustedError); ok {
			logger.Error("every format failed validation", "tool_id", toolID)
			attempts, _ := json.MarshalIndent(ex.Attempts, "", "  ")
			fmt.Fprintln(os.Stderr, string(attempts))
		} else {
			logger.Error("generation failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("prompt generated",
		"tool_id", toolID,
		"format", result.Format,
		"attempts", len(result.Attempts),
	)
	if c.Bool("show-attempts") {
		attempts, _ := json.MarshalIndent(result.Attempts, "", "  ")
		fmt.Fprintln(os.Stderr, string(attempts))
	}

	fmt.Println(result.Prompt)
	return nil
}

// buildRequest assembles the generation payload from flags: repeated
// --file paths are read from disk, --constraints takes inline JSON.
func buildRequest(c *cli.Context, manifest *models.IDEManifest, task string) (*models.GenerationRequest, error) {
	req := &models.GenerationRequest{
		ToolID:   manifest.ID,
		ToolName: manifest.Name,
		Task:     strings.TrimSpace(task),
		Language: c.String("language"),
	}

	for _, path := range c.StringSlice("file") {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read context file: %w", err)
		}
		req.Files = append(req.Files, models.FileContext{
			Path:    filepath.Base(path),
			Content: string(content),
		})
	}

	if raw := c.String("constraints"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Constraints); err != nil {
			return nil, fmt.Errorf("--constraints must be a JSON object: %w", err)
		}
	}
	return req, nil
}
