// Package common holds the runtime plumbing shared by every CLI verb:
// logger construction, config resolution, database opening, and embedding
// provider selection.
package common

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/db"
	"github.com/promptforge/promptforge/pkg/embedder"
)

// OllamaEmbeddingDim matches nomic-embed-text.
const OllamaEmbeddingDim = 768

// NewLogger builds the process logger: JSON records on stderr so stdout
// stays clean for command output.
func NewLogger(quiet bool) *slog.Logger {
	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// LoadConfig resolves the effective config: the --config file when given,
// defaults otherwise, then CLI flag overrides.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	var cfg *models.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = models.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = models.DefaultConfig()
	}
	if c.IsSet("db") {
		cfg.DatabasePath = c.String("db")
	}
	return cfg, nil
}

// OpenDatabase opens the store with the vector dimension of whichever
// embedding provider will serve this process.
func OpenDatabase(cfg *models.Config) (*db.DB, error) {
	dim := db.DefaultEmbeddingDim
	if os.Getenv("OPENAI_API_KEY") == "" {
		dim = OllamaEmbeddingDim
	}
	database, err := db.Open(cfg.DatabasePath, dim)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	return database, nil
}

// NewEmbeddingService wires the provider chain: OpenAI primary when the
// key is present, Ollama as secondary or sole provider.
func NewEmbeddingService(cfg *models.Config, logger *slog.Logger) (*embedder.Service, error) {
	ollama := embedder.NewOllamaProvider(cfg.Embedding.OllamaBaseURL, cfg.Embedding.OllamaModel)

	openAI, err := embedder.NewOpenAIProvider(cfg.Embedding.OpenAIModel)
	if err != nil {
		logger.Info("OpenAI unavailable, using Ollama only", "reason", err)
		return embedder.NewService(ollama, nil, cfg.Embedding.BatchSize, logger), nil
	}
	return embedder.NewService(openAI, ollama, cfg.Embedding.BatchSize, logger), nil
}

// ResolveTools returns the tool seed entries selected by the --tools flag
// (comma-separated IDs), or all configured tools when the flag is empty.
func ResolveTools(cfg *models.Config, selected []string) ([]models.ToolSeed, error) {
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("no tools configured; add a tools section to the config file")
	}
	if len(selected) == 0 {
		return cfg.Tools, nil
	}

	byID := map[string]models.ToolSeed{}
	for _, t := range cfg.Tools {
		byID[t.ID] = t
	}
	var out []models.ToolSeed
	for _, id := range selected {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown tool %q in --tools", id)
		}
		out = append(out, t)
	}
	return out, nil
}
