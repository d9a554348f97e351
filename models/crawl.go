package models

import "time"

// CrawlConfig holds runtime configuration for one crawl job.
type CrawlConfig struct {
	MaxPages          int           `yaml:"max_pages"`
	MaxDepth          int           `yaml:"max_depth"`
	RateLimit         time.Duration `yaml:"rate_limit"`
	Timeout           time.Duration `yaml:"timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RespectRobots     bool          `yaml:"respect_robots"`
	MaxContentBytes   int64         `yaml:"max_content_bytes"`
	UserAgent         string        `yaml:"user_agent"`
	SameOriginOnly    bool          `yaml:"same_origin_only"`
	RemoveQueryParams bool          `yaml:"remove_query_params"`
	// Languages restricts stored pages to these lingua language names
	// (e.g. "English"). Empty means accept everything.
	Languages []string `yaml:"languages"`
}

// DefaultCrawlConfig returns the tuned defaults for documentation sites.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxPages:        50,
		MaxDepth:        3,
		RateLimit:       1000 * time.Millisecond,
		Timeout:         30 * time.Second,
		RetryAttempts:   3,
		RespectRobots:   true,
		MaxContentBytes: 5 * 1024 * 1024,
		UserAgent:       "promptforge-crawler/1.0",
		SameOriginOnly:  true,
	}
}

// CrawlError records a single per-URL failure without aborting the crawl.
type CrawlError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// CrawlStats is the terminal output of one crawl job. Counters are updated
// at every terminal branch so a partial run still reports completely.
type CrawlStats struct {
	JobID           string        `json:"job_id"`
	IDEID           string        `json:"ide_id"`
	SuccessfulPages int           `json:"successful_pages"`
	FailedPages     int           `json:"failed_pages"`
	SkippedPages    int           `json:"skipped_pages"`
	StoredChunks    int           `json:"stored_chunks"`
	TotalBytes      int64         `json:"total_bytes"`
	Duration        time.Duration `json:"duration"`
	Errors          []CrawlError  `json:"errors,omitempty"`
}
