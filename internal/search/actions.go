// Package search implements the search verb: semantic retrieval over
// stored chunks, with a plain-text fallback when no embedding provider
// can serve the query.
package search

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/promptforge/promptforge/internal/common"
	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/db"
)

func SearchAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	query := c.Args().First()
	if query == "" {
		fmt.Fprintln(os.Stderr, "Error: query argument required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  promptforge search "how do I configure keybindings"`)
		fmt.Fprintln(os.Stderr, `  promptforge search --tool cursor --top 5 "settings file format"`)
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

	toolID := c.String("tool")
	top := c.Int("top")

	results, mode := runSearch(c, database, cfg, logger, toolID, query, top)

	type hit struct {
		ToolID   string  `yaml:"tool_id"`
		Source   string  `yaml:"source,omitempty"`
		Section  string  `yaml:"section,omitempty"`
		Version  string  `yaml:"version"`
		Distance float64 `yaml:"distance,omitempty"`
		Text     string  `yaml:"text"`
	}
	out := struct {
		Mode    string `yaml:"mode"`
		Query   string `yaml:"query"`
		Results []hit  `yaml:"results"`
	}{Mode: mode, Query: query}

	for _, r := range results {
		out.Results = append(out.Results, hit{
			ToolID:   r.Chunk.IDEID,
			Source:   r.Chunk.SourceURL,
			Section:  r.Chunk.Section,
			Version:  r.Chunk.Version,
			Distance: r.Distance,
			Text:     r.Chunk.Text,
		})
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		logger.Error("failed to marshal results", "error", err)
		os.Exit(2)
	}
	fmt.Print(string(data))
	return nil
}

// runSearch embeds the query and does a vector lookup; any failure on that
// path degrades to substring matching rather than aborting.
func runSearch(c *cli.Context, database *db.DB, cfg *models.Config, logger *slog.Logger, toolID, query string, top int) ([]db.SearchResult, string) {
	if !c.Bool("text-only") {
		service, err := common.NewEmbeddingService(cfg, logger)
		if err == nil {
			vec, embedErr := service.EmbedSingle(c.Context, query)
			if embedErr == nil {
				results, searchErr := database.SearchSimilar(c.Context, toolID, vec, top)
				if searchErr == nil {
					return results, "semantic"
				}
				logger.Warn("vector search failed, falling back to text", "error", searchErr)
			} else {
				logger.Warn("query embedding failed, falling back to text", "error", embedErr)
			}
		}
	}

	results, err := database.SearchText(c.Context, toolID, query, top)
	if err != nil {
		logger.Error("text search failed", "error", err)
		os.Exit(2)
	}
	return results, "text"
}
