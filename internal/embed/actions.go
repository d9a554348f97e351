// Package embed implements the embed verb: vectorize stored chunks that
// have no embedding yet and attach the vectors to the store.
package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/promptforge/promptforge/internal/common"
	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/db"
)

// chunkBatch is how many pending chunks are pulled from the store per
// round trip; the embedding service batches provider calls on its own.
const chunkBatch = 128

func EmbedAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

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

	service, err := common.NewEmbeddingService(cfg, logger)
	if err != nil {
		logger.Error("failed to build embedding service", "error", err)
		os.Exit(2)
	}

	toolIDs, err := resolveToolIDs(c, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	type toolResult struct {
		ToolID   string `json:"tool_id"`
		Embedded int    `json:"embedded"`
		Failed   int    `json:"failed"`
	}
	var results []toolResult
	hadFailures := false

	for _, toolID := range toolIDs {
		embedded, failed, err := embedPending(c.Context, database, service, toolID, logger)
		if err != nil {
			logger.Error("failed to load pending chunks", "tool_id", toolID, "error", err)
			os.Exit(2)
		}
		if failed > 0 {
			hadFailures = true
		}

		logger.Info("tool embedded", "tool_id", toolID, "embedded", embedded, "failed", failed)
		results = append(results, toolResult{ToolID: toolID, Embedded: embedded, Failed: failed})
	}

	out, err := json.MarshalIndent(map[string]any{
		"status": statusWord(hadFailures),
		"tools":  results,
	}, "", "  ")
	if err != nil {
		logger.Error("failed to marshal output", "error", err)
		os.Exit(2)
	}
	fmt.Println(string(out))

	if hadFailures {
		os.Exit(1)
	}
	return nil
}

// vectorizer is the slice of the embedding service the pending loop needs.
type vectorizer interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// embedPending drains one tool's unembedded chunks in batches. A round
// that attaches nothing ends the loop: the next fetch would return the
// same rows, so a persistent failure (provider down, vector dimension
// mismatch) must not refetch them forever. The returned error covers only
// store reads; embedding and attach failures are counted in failed.
func embedPending(ctx context.Context, database *db.DB, service vectorizer, toolID string, logger *slog.Logger) (embedded, failed int, err error) {
	for {
		pending, err := database.ChunksWithoutEmbedding(ctx, toolID, chunkBatch)
		if err != nil {
			return embedded, failed, fmt.Errorf("load pending chunks for %s: %w", toolID, err)
		}
		if len(pending) == 0 {
			return embedded, failed, nil
		}

		texts := make([]string, len(pending))
		for i, ch := range pending {
			texts[i] = ch.Text
		}
		vectors, err := service.Embed(ctx, texts)
		if err != nil {
			logger.Error("embedding batch failed", "tool_id", toolID, "error", err)
			return embedded, failed + len(pending), nil
		}

		attached := 0
		for i, ch := range pending {
			if err := database.AttachEmbedding(ctx, ch.ID, vectors[i]); err != nil {
				logger.Warn("failed to attach embedding", "chunk_id", ch.ID, "error", err)
				failed++
				continue
			}
			embedded++
			attached++
		}
		if attached == 0 {
			logger.Error("no embeddings attached this round, stopping",
				"tool_id", toolID, "pending", len(pending))
			return embedded, failed, nil
		}
	}
}

// resolveToolIDs picks the tools to embed: --tools when set, otherwise
// every configured tool.
func resolveToolIDs(c *cli.Context, cfg *models.Config) ([]string, error) {
	if s := c.String("tools"); s != "" {
		var ids []string
		for _, id := range strings.Split(s, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	tools, err := common.ResolveTools(cfg, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(tools))
	for i, t := range tools {
		ids[i] = t.ID
	}
	return ids, nil
}

func statusWord(failed bool) string {
	if failed {
		return "partial_failure"
	}
	return "success"
}
