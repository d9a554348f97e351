package crawler

import (
	"context"
	"math/rand"
	"time"
)

// hostLimiter enforces a per-host minimum delay between requests, honoring
// robots.txt Crawl-delay when it exceeds the configured floor. Jitter is a
// random fraction of the delay so many concurrent crawl jobs don't
// synchronize against the same host.
type hostLimiter struct {
	minDelay    time.Duration
	lastRequest map[string]time.Time
	crawlDelays map[string]time.Duration
}

const jitterFraction = 0.25

func newHostLimiter(minDelay time.Duration) *hostLimiter {
	return &hostLimiter{
		minDelay:    minDelay,
		lastRequest: make(map[string]time.Time),
		crawlDelays: make(map[string]time.Duration),
	}
}

// setCrawlDelay records a robots.txt Crawl-delay directive for a host.
func (l *hostLimiter) setCrawlDelay(host string, d time.Duration) {
	if d > 0 {
		l.crawlDelays[host] = d
	}
}

// delayFor returns the effective minimum delay for a host.
func (l *hostLimiter) delayFor(host string) time.Duration {
	d := l.minDelay
	if cd := l.crawlDelays[host]; cd > d {
		d = cd
	}
	return d
}

// wait sleeps until the host's rate window has passed, or the context is
// canceled.
func (l *hostLimiter) wait(ctx context.Context, host string) error {
	last, ok := l.lastRequest[host]
	if !ok {
		return nil
	}
	delay := l.delayFor(host)
	delay += time.Duration(rand.Float64() * jitterFraction * float64(delay))

	sleep := time.Until(last.Add(delay))
	if sleep <= 0 {
		return nil
	}
	select {
	case <-time.After(sleep):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mark records that a request to host was just issued.
func (l *hostLimiter) mark(host string) {
	l.lastRequest[host] = time.Now()
}
