package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
)

// retryPolicy decides how often and how long to wait before refetching a
// URL after a transient failure.
type retryPolicy struct {
	maxRetries int
	base       time.Duration
	max        time.Duration
}

func newRetryPolicy(cfg *config.Config) *retryPolicy {
	return &retryPolicy{
		maxRetries: cfg.MaxRetries,
		base:       cfg.RetryBackoff,
		max:        cfg.RetryBackoffMax,
	}
}

func (rp *retryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rp.base
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if rp.max > 0 && delay > rp.max {
		delay = rp.max
	}
	return delay
}

// fetch issues a request and retries timeouts, connection failures and rate
// limits. The last error is returned once retries are exhausted.
func (o *Orchestrator) fetch(ctx context.Context, phase, url string) (*goquery.Document, error) {
	for attempt := 1; ; attempt++ {
		o.metrics.IncRequest(phase)
		doc, err := o.fetcher.Fetch(ctx, url)
		if err == nil {
			return doc, nil
		}
		if attempt > o.retry.maxRetries || !scraper.IsRetryable(err) {
			return nil, err
		}

		delay := o.retry.backoff(attempt)
		o.metrics.IncRetries()
		o.logger.Warn("retrying fetch",
			slog.String("url", url),
			slog.String("phase", phase),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &scraper.FetchError{URL: url, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}
