// Package crawler orchestrates breadth-first traversal of documentation
// sites: robots.txt compliance, per-host rate limiting, retried fetches,
// content gating, version detection, and delegation to the parser, the
// chunker, and the chunk store. One Crawler instance owns one cooperative
// crawl at a time; run independent instances for independent jobs.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/chunker"
	"github.com/promptforge/promptforge/pkg/parser"
	"github.com/promptforge/promptforge/pkg/urlnorm"
)

// minContentChars rejects parsed pages that are likely boilerplate or
// redirect stubs.
const minContentChars = 100

// ChunkStore is the persistence collaborator for crawled chunks.
type ChunkStore interface {
	BulkInsertChunks(ctx context.Context, chunks []models.Chunk) error
}

// Crawler runs one crawl job. All mutable state (seen-set, per-host
// timing, robots cache) is owned by the instance and touched only from
// its own sequential control flow.
type Crawler struct {
	cfg       models.CrawlConfig
	client    *http.Client
	norm      *urlnorm.Normalizer
	parser    *parser.Parser
	chunker   *chunker.Chunker
	chunkOpts chunker.Options
	store     ChunkStore
	robots    *robotsCache
	limiter   *hostLimiter
	logger    *slog.Logger
}

// New builds a Crawler for one job.
func New(cfg models.CrawlConfig, store ChunkStore, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	client := &http.Client{Timeout: cfg.Timeout}
	return &Crawler{
		cfg:    cfg,
		client: client,
		norm: urlnorm.New(urlnorm.Options{
			SameOriginOnly:    cfg.SameOriginOnly,
			RemoveQueryParams: cfg.RemoveQueryParams,
		}),
		parser:    parser.New(),
		chunker:   chunker.New(),
		chunkOpts: chunker.DefaultOptions(),
		store:     store,
		robots:    newRobotsCache(client, cfg.UserAgent),
		limiter:   newHostLimiter(cfg.RateLimit),
		logger:    logger,
	}
}

type queueItem struct {
	url   *models.NormalizedURL
	depth int
}

// Crawl runs a breadth-first crawl from the seed URLs for one tool and
// returns complete stats even when stopped by the page ceiling.
func (c *Crawler) Crawl(ctx context.Context, ideID string, seeds []string) (*models.CrawlStats, error) {
	start := time.Now()
	stats := &models.CrawlStats{
		JobID: uuid.NewString(),
		IDEID: ideID,
	}

	var queue []queueItem
	for _, seed := range seeds {
		cleaned := urlnorm.CleanRaw(seed)
		normalized := c.norm.Sanitize(cleaned, "")
		if normalized == nil {
			stats.Errors = append(stats.Errors, models.CrawlError{URL: seed, Message: "invalid seed URL"})
			continue
		}
		if c.norm.HasSeen(normalized.URL) {
			continue
		}
		c.norm.MarkSeen(normalized.URL)
		queue = append(queue, queueItem{url: normalized, depth: 0})
	}
	if len(queue) == 0 {
		stats.Duration = time.Since(start)
		return stats, fmt.Errorf("crawl %s: no valid seed URLs", ideID)
	}

	processed := 0
	for len(queue) > 0 && processed < c.cfg.MaxPages {
		if ctx.Err() != nil {
			break
		}
		item := queue[0]
		queue = queue[1:]
		processed++

		discovered := c.processPage(ctx, ideID, item, stats)
		queue = append(queue, discovered...)
	}

	stats.Duration = time.Since(start)
	c.logger.Info("crawl finished",
		"job_id", stats.JobID,
		"ide_id", ideID,
		"successful", stats.SuccessfulPages,
		"failed", stats.FailedPages,
		"skipped", stats.SkippedPages,
		"chunks", stats.StoredChunks,
		"bytes", stats.TotalBytes,
		"duration", stats.Duration.String(),
	)
	return stats, nil
}

// processPage runs the per-page pipeline and returns newly discovered
// queue items. Every terminal branch updates exactly one stats counter.
func (c *Crawler) processPage(ctx context.Context, ideID string, item queueItem, stats *models.CrawlStats) []queueItem {
	pageURL := item.url

	if isNonDocURL(pageURL.Pathname) {
		stats.SkippedPages++
		c.logger.Debug("skipping non-documentation URL", "url", pageURL.URL)
		return nil
	}

	if c.cfg.RespectRobots {
		allowed, crawlDelay := c.robots.allowed(ctx, pageURL.URL)
		c.limiter.setCrawlDelay(pageURL.Hostname, crawlDelay)
		if !allowed {
			stats.FailedPages++
			stats.Errors = append(stats.Errors, models.CrawlError{URL: pageURL.URL, Message: ErrRobotsDisallowed.Error()})
			return nil
		}
	}

	res, err := c.fetch(ctx, pageURL)
	if err != nil {
		if errors.Is(err, ErrContentTooLarge) || errors.Is(err, ErrUnsupportedContentType) {
			stats.SkippedPages++
			c.logger.Debug("content gate rejected page", "url", pageURL.URL, "reason", err)
		} else {
			stats.FailedPages++
			stats.Errors = append(stats.Errors, models.CrawlError{URL: pageURL.URL, Message: err.Error()})
			c.logger.Warn("fetch failed", "url", pageURL.URL, "error", err)
		}
		return nil
	}
	stats.TotalBytes += res.bytes

	doc := c.parsePage(res, pageURL)

	if len(c.cfg.Languages) > 0 && doc.Metadata.Language != "" && !languageAllowed(doc.Metadata.Language, c.cfg.Languages) {
		stats.SkippedPages++
		c.logger.Debug("skipping page in excluded language", "url", pageURL.URL, "language", doc.Metadata.Language)
		return nil
	}

	if len(strings.TrimSpace(doc.Text)) < minContentChars {
		stats.SkippedPages++
		c.logger.Debug("skipping too-short page", "url", pageURL.URL, "chars", len(doc.Text))
		return nil
	}

	version := detectVersion(pageURL, doc, queryParams(pageURL.URL))

	chunks, err := c.chunker.ChunkDocument(models.ChunkInput{
		IDEID:     ideID,
		Text:      doc.Text,
		SourceURL: pageURL.URL,
		Section:   firstNonEmpty(doc.Section, doc.Title),
		Version:   version,
	}, c.chunkOpts)
	if err != nil {
		stats.FailedPages++
		stats.Errors = append(stats.Errors, models.CrawlError{URL: pageURL.URL, Message: err.Error()})
		return nil
	}

	if len(chunks) > 0 {
		if err := c.store.BulkInsertChunks(ctx, chunks); err != nil {
			stats.FailedPages++
			stats.Errors = append(stats.Errors, models.CrawlError{URL: pageURL.URL, Message: fmt.Sprintf("store chunks: %v", err)})
			return nil
		}
		stats.StoredChunks += len(chunks)
	}

	stats.SuccessfulPages++
	c.logger.Info("page stored", "url", pageURL.URL, "chunks", len(chunks), "version", version, "depth", item.depth)

	if item.depth >= c.cfg.MaxDepth || !isHTMLContent(res.contentType) {
		return nil
	}
	return c.discoverLinks(res.body, pageURL, item.depth)
}

func (c *Crawler) parsePage(res *fetchResult, pageURL *models.NormalizedURL) *models.ParsedDocument {
	switch {
	case isMarkdownContent(res.contentType, pageURL.Pathname):
		return c.parser.ParseMarkdown(string(res.body), pageURL.URL)
	case isHTMLContent(res.contentType):
		return c.parser.ParseHTML(string(res.body), pageURL.URL)
	default:
		return c.parser.ParseText(string(res.body), pageURL.URL)
	}
}

// discoverLinks extracts anchor targets in DOM order, normalizes them, and
// returns the unseen documentation candidates one level deeper.
func (c *Crawler) discoverLinks(body []byte, pageURL *models.NormalizedURL, depth int) []queueItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	var found []queueItem
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		normalized := c.norm.Sanitize(href, pageURL.URL)
		if normalized == nil {
			return
		}
		if isNonDocURL(normalized.Pathname) {
			return
		}
		if c.norm.HasSeen(normalized.URL) {
			return
		}
		c.norm.MarkSeen(normalized.URL)
		found = append(found, queueItem{url: normalized, depth: depth + 1})
	})
	return found
}

func queryParams(rawURL string) map[string][]string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return u.Query()
}

func languageAllowed(lang string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, lang) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
