// Package scrape fetches supplier product pages over plain HTTP, rate
// limited so catalog runs with thousands of links stay polite.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foxfeed/internal/config"
)

type Client struct {
	httpClient *http.Client
	limiter    *RateLimiter
	userAgent  string
	maxBody    int64
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(cfg.ScrapeTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.ScrapeRateLimitRPS),
		userAgent:  cfg.ScrapeUserAgent,
		maxBody:    10 << 20,
	}
}

// FetchPage downloads one product page. Transient statuses are retried
// with exponential backoff; anything else fails immediately.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme: %s", u.Scheme)
	}

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("scrape status %d", resp.StatusCode)
				continue
			}
			return "", fmt.Errorf("scrape error: url=%s status=%d", u.String(), resp.StatusCode)
		}

		return string(body), nil
	}

	if lastErr == nil {
		lastErr = errors.New("scrape request failed")
	}
	return "", lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
