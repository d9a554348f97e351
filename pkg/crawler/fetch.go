package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/promptforge/promptforge/models"
	"github.com/promptforge/promptforge/pkg/retry"
)

// Content-policy rejection sentinels. These are never retried.
var (
	ErrContentTooLarge        = errors.New("content exceeds size cap")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrRobotsDisallowed       = errors.New("disallowed by robots.txt")
)

type fetchResult struct {
	body        []byte
	contentType string
	bytes       int64
}

// fetch performs one rate-limited, retried GET with content gating. Each
// attempt is bounded by the configured timeout; transient failures back
// off exponentially with jitter; policy rejections stop immediately.
func (c *Crawler) fetch(ctx context.Context, u *models.NormalizedURL) (*fetchResult, error) {
	policy := retry.DefaultPolicy(c.cfg.RetryAttempts)
	policy.Retryable = func(err error) bool {
		return !errors.Is(err, ErrContentTooLarge) && !errors.Is(err, ErrUnsupportedContentType)
	}

	var result *fetchResult
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		if err := c.limiter.wait(ctx, u.Hostname); err != nil {
			return err
		}
		c.limiter.mark(u.Hostname)

		res, err := c.fetchOnce(ctx, u)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Crawler) fetchOnce(ctx context.Context, u *models.NormalizedURL) (*fetchResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain,text/markdown")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", u.URL, resp.StatusCode)
	}

	// Declared size gate: skip the download entirely when the server
	// already admits the body is too big.
	if resp.ContentLength > 0 && resp.ContentLength > c.cfg.MaxContentBytes {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrContentTooLarge, resp.ContentLength)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isSupportedContentType(contentType, u.Pathname) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxContentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", u.URL, err)
	}
	if int64(len(body)) > c.cfg.MaxContentBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrContentTooLarge, c.cfg.MaxContentBytes)
	}

	return &fetchResult{
		body:        body,
		contentType: contentType,
		bytes:       int64(len(body)),
	}, nil
}
