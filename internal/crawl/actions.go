// Package crawl implements the crawl verb: breadth-first ingestion of each
// selected tool's documentation into the chunk store.
package crawl

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/promptforge/promptforge/internal/common"
	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/crawler"
)

// toolConcurrency bounds how many tools crawl at once. Per-host politeness
// lives in the crawler itself; this only caps overall parallelism.
const toolConcurrency = 2

func CrawlAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"))

	cfg, err := common.LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	applyCrawlFlags(c, &cfg.Crawler)

	tools, err := selectTools(c, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  promptforge crawl --config config.yaml`)
		fmt.Fprintln(os.Stderr, `  promptforge crawl --config config.yaml --tools cursor,copilot`)
		fmt.Fprintln(os.Stderr, `  promptforge crawl --tool-id cursor --urls "https://docs.cursor.com"`)
		os.Exit(1)
	}

	database, err := common.OpenDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	if c.Bool("fresh") {
		for _, tool := range tools {
			n, err := database.DeleteChunksByTool(c.Context, tool.ID)
			if err != nil {
				logger.Error("failed to clear old chunks", "tool_id", tool.ID, "error", err)
				os.Exit(2)
			}
			logger.Info("cleared previous crawl", "tool_id", tool.ID, "chunks_deleted", n)
		}
	}

	var mu sync.Mutex
	var allStats []*models.CrawlStats

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(toolConcurrency)
	for _, tool := range tools {
		g.Go(func() error {
			// Each tool gets its own crawler: the seen-set and host
			// timers are not shared across jobs.
			cw := crawler.New(cfg.Crawler, database, logger.With("tool_id", tool.ID))
			stats, err := cw.Crawl(ctx, tool.ID, tool.Seeds)
			mu.Lock()
			allStats = append(allStats, stats)
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("crawl %s: %w", tool.ID, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	out, err := json.MarshalIndent(summarize(allStats, runErr), "", "  ")
	if err != nil {
		logger.Error("failed to marshal output", "error", err)
		os.Exit(2)
	}
	fmt.Println(string(out))

	if runErr != nil {
		logger.Error("crawl finished with errors", "error", runErr)
		os.Exit(1)
	}
	return nil
}

// applyCrawlFlags layers CLI overrides onto the configured crawl settings.
func applyCrawlFlags(c *cli.Context, cfg *models.CrawlConfig) {
	if c.IsSet("max-pages") {
		cfg.MaxPages = c.Int("max-pages")
	}
	if c.IsSet("max-depth") {
		cfg.MaxDepth = c.Int("max-depth")
	}
	if c.IsSet("ignore-robots") {
		cfg.RespectRobots = !c.Bool("ignore-robots")
	}
	if c.IsSet("keep-query-params") {
		cfg.RemoveQueryParams = !c.Bool("keep-query-params")
	}
}

// selectTools resolves what to crawl: configured tools (optionally
// filtered by --tools), or an ad-hoc --tool-id/--urls pair.
func selectTools(c *cli.Context, cfg *models.Config) ([]models.ToolSeed, error) {
	if c.IsSet("urls") {
		id := c.String("tool-id")
		if id == "" {
			return nil, fmt.Errorf("--urls requires --tool-id")
		}
		return []models.ToolSeed{{
			ID:    id,
			Name:  firstNonEmpty(c.String("tool-name"), id),
			Seeds: strings.Split(c.String("urls"), ","),
		}}, nil
	}

	var selected []string
	if s := c.String("tools"); s != "" {
		for _, id := range strings.Split(s, ",") {
			if id = strings.TrimSpace(id); id != "" {
				selected = append(selected, id)
			}
		}
	}
	return common.ResolveTools(cfg, selected)
}

type crawlOutput struct {
	Status string               `json:"status"`
	Crawls []*models.CrawlStats `json:"crawls"`
	Totals crawlTotals          `json:"totals"`
}

type crawlTotals struct {
	SuccessfulPages int `json:"successful_pages"`
	FailedPages     int `json:"failed_pages"`
	SkippedPages    int `json:"skipped_pages"`
	StoredChunks    int `json:"stored_chunks"`
}

func summarize(all []*models.CrawlStats, runErr error) crawlOutput {
	out := crawlOutput{Crawls: all, Status: "success"}
	if runErr != nil {
		out.Status = "partial_failure"
	}
	for _, s := range all {
		if s == nil {
			continue
		}
		out.Totals.SuccessfulPages += s.SuccessfulPages
		out.Totals.FailedPages += s.FailedPages
		out.Totals.SkippedPages += s.SkippedPages
		out.Totals.StoredChunks += s.StoredChunks
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
