package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches and caches robots.txt per host for the lifetime of
// one crawler instance. A fetch failure or non-200 status is treated as
// allow-all (fail-open).
type robotsCache struct {
	client *http.Client
	agent  string
	groups map[string]*robotstxt.Group // keyed by robots.txt URL
}

func newRobotsCache(client *http.Client, agent string) *robotsCache {
	return &robotsCache{
		client: client,
		agent:  agent,
		groups: make(map[string]*robotstxt.Group),
	}
}

// allowed reports whether the configured agent may fetch pageURL, and the
// host's Crawl-delay directive (zero when absent).
func (r *robotsCache) allowed(ctx context.Context, pageURL string) (bool, time.Duration) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return true, 0
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	group, cached := r.groups[robotsURL]
	if !cached {
		group = r.fetchGroup(ctx, robotsURL)
		r.groups[robotsURL] = group
	}
	if group == nil {
		return true, 0
	}
	return group.Test(u.Path), group.CrawlDelay
}

// fetchGroup downloads and parses one robots.txt. Any failure yields nil,
// which allowed() treats as allow-all.
func (r *robotsCache) fetchGroup(ctx context.Context, robotsURL string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return robots.FindGroup(r.agent)
}
