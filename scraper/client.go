package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/gocolly/colly/v2"
)

// Client fetches catalog pages and returns them as parsed documents.
type Client struct {
	collector *colly.Collector
	metrics   *Metrics
	logger    *slog.Logger
}

// NewClient builds a client with the configured user agent and timeout.
func NewClient(cfg *config.Config, metrics *Metrics, logger *slog.Logger) *Client {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.DetectCharset = cfg.DetectCharset
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Client{
		collector: collector,
		metrics:   metrics,
		logger:    logger.With("component", "page_client"),
	}
}

// WithTransport replaces the HTTP transport used for every fetch.
func (c *Client) WithTransport(transport http.RoundTripper) {
	c.collector.WithTransport(transport)
}

// Fetch performs one GET and parses the decoded body. Failures are returned
// as *FetchError; there is no retry here.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: rawURL, Err: classifyError(err, 0)}
	}

	// Clones share the HTTP backend but not callbacks.
	collector := c.collector.Clone()

	var (
		doc      *goquery.Document
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			fetchErr = fmt.Errorf("parse document: %w", err)
			return
		}
		parsed.Url = r.Request.URL
		doc = parsed
	})
	collector.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = classifyError(err, statusCode)
	})

	start := time.Now()
	visitErr := collector.Visit(rawURL)
	c.metrics.ObserveDuration(time.Since(start))

	if fetchErr == nil && visitErr != nil {
		fetchErr = classifyError(visitErr, 0)
	}
	if fetchErr == nil && doc == nil {
		fetchErr = fmt.Errorf("empty response")
	}
	if fetchErr != nil {
		category := ErrorTypeLabel(fetchErr)
		c.metrics.IncError(category)
		c.logger.Debug("fetch failed",
			slog.String("url", rawURL),
			slog.String("category", category),
			slog.Any("error", fetchErr),
		)
		return nil, &FetchError{URL: rawURL, Err: fetchErr}
	}
	return doc, nil
}
