// Package pipeline runs scrape jobs and turns their records into exports.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/archive"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/scraper"
	"github.com/aluiziolira/go-scrape-catalog/tracker"
	"github.com/google/uuid"
)

const (
	phaseListing = "listing"
	phaseDetail  = "detail"
)

// Fetcher retrieves a page as a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// JobRecorder receives the final state of every job.
type JobRecorder interface {
	Record(ctx context.Context, state models.JobState) error
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithArchive keeps terminal job states in a.
func WithArchive(a *archive.Archive) Option {
	return func(o *Orchestrator) {
		o.archive = a
	}
}

// WithRecorder adds a recorder for terminal job states.
func WithRecorder(r JobRecorder) Option {
	return func(o *Orchestrator) {
		o.recorders = append(o.recorders, r)
	}
}

// Orchestrator drives one job at a time: page discovery, listing pages,
// detail pages, then the export. Requests are issued one after another with
// a fixed delay between them.
type Orchestrator struct {
	cfg       *config.Config
	fetcher   Fetcher
	extractor *scraper.Extractor
	tracker   *tracker.Tracker
	retry     *retryPolicy
	metrics   *scraper.Metrics
	archive   *archive.Archive
	recorders []JobRecorder
	logger    *slog.Logger
	newID     func() string

	wg sync.WaitGroup
}

// NewOrchestrator wires an orchestrator around fetcher and tr.
func NewOrchestrator(cfg *config.Config, fetcher Fetcher, tr *tracker.Tracker, metrics *scraper.Metrics, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: scraper.NewExtractor(cfg),
		tracker:   tr,
		retry:     newRetryPolicy(cfg),
		metrics:   metrics,
		logger:    logger.With("component", "orchestrator"),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start begins a job in the background and returns its id. It returns
// tracker.ErrJobRunning while another job is in progress. ctx bounds the
// job itself, so callers pass a long-lived context rather than a request's.
func (o *Orchestrator) Start(ctx context.Context) (string, error) {
	jobID := o.newID()
	if err := o.tracker.Reset(jobID); err != nil {
		return "", err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_, _ = o.execute(ctx, jobID)
	}()
	return jobID, nil
}

// Run performs a job in the foreground and returns its final state. A
// finished job whose export could not be written to OutputFile is returned
// together with the write error.
func (o *Orchestrator) Run(ctx context.Context) (models.JobState, error) {
	jobID := o.newID()
	if err := o.tracker.Reset(jobID); err != nil {
		return models.JobState{}, err
	}

	state, saveErr := o.execute(ctx, jobID)
	if state.Status == models.StatusFailed {
		return state, fmt.Errorf("scrape job %s failed: %s", jobID, state.Reason)
	}
	if saveErr != nil {
		return state, fmt.Errorf("scrape job %s: %w", jobID, saveErr)
	}
	return state, nil
}

// Wait blocks until background jobs started by Start have returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// execute always leaves the tracker in a terminal state, including when the
// scrape panics. The returned error reports a failed write of OutputFile;
// the job itself stays finished.
func (o *Orchestrator) execute(ctx context.Context, jobID string) (models.JobState, error) {
	logger := o.logger.With(slog.String("job_id", jobID))
	logger.Info("scrape job started", slog.String("start_url", o.cfg.ListingURL(1)))
	start := time.Now()

	var (
		state   models.JobState
		saveErr error
	)
	export, err := o.safeScrape(ctx, logger)
	if err != nil {
		state = o.tracker.Fail(err.Error())
		o.metrics.IncJob(string(models.StatusFailed))
		logger.Error("scrape job failed",
			slog.Any("error", err),
			slog.String("category", scraper.ErrorTypeLabel(err)),
			slog.Duration("duration", time.Since(start)),
		)
	} else {
		state = o.tracker.Finish(export)
		o.metrics.IncJob(string(models.StatusFinished))
		logger.Info("scrape job finished",
			slog.Int("pages", state.ScrapedPages),
			slog.Int("items", state.ScrapedItems),
			slog.Int("kept", state.KeptItems),
			slog.Duration("duration", time.Since(start)),
		)
		if o.cfg.OutputFile != "" {
			if saveErr = SaveExport(o.cfg.OutputFile, export); saveErr != nil {
				logger.Error("saving export failed",
					slog.String("path", o.cfg.OutputFile),
					slog.Any("error", saveErr),
				)
			}
		}
	}

	o.publish(ctx, state, logger)
	return state, saveErr
}

func (o *Orchestrator) safeScrape(ctx context.Context, logger *slog.Logger) (export []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scrape job panicked", slog.Any("panic", r))
			err = fmt.Errorf("scrape panicked: %v", r)
		}
	}()
	return o.scrape(ctx, logger)
}

func (o *Orchestrator) scrape(ctx context.Context, logger *slog.Logger) ([]byte, error) {
	listings, err := o.scrapeListings(ctx, logger)
	if err != nil {
		return nil, err
	}
	kept, err := o.scrapeDetails(ctx, logger, listings)
	if err != nil {
		return nil, err
	}
	return SerializeCSV(kept)
}

func (o *Orchestrator) scrapeListings(ctx context.Context, logger *slog.Logger) ([]models.ListingRecord, error) {
	first, err := o.fetch(ctx, phaseListing, o.cfg.ListingURL(1))
	if err != nil {
		return nil, err
	}

	pages := o.extractor.PageCount(first)
	if pages > o.cfg.MaxPages {
		logger.Warn("page count capped",
			slog.Int("resolved", pages),
			slog.Int("max_pages", o.cfg.MaxPages),
		)
		pages = o.cfg.MaxPages
	}
	o.tracker.SetTotalPages(pages)
	logger.Info("pagination resolved", slog.Int("pages", pages))

	var listings []models.ListingRecord
	for page := 1; page <= pages; page++ {
		doc := first
		if page > 1 {
			if doc, err = o.fetch(ctx, phaseListing, o.cfg.ListingURL(page)); err != nil {
				return nil, err
			}
		}

		records := o.extractor.Listings(doc)
		if len(records) == 0 {
			logger.Warn("listing page has no items", slog.Int("page", page))
		}
		listings = append(listings, records...)
		o.tracker.IncrementScrapedPages()
		logger.Debug("listing page scraped",
			slog.Int("page", page),
			slog.Int("records", len(records)),
		)

		if err := o.pause(ctx); err != nil {
			return nil, err
		}
	}
	return listings, nil
}

func (o *Orchestrator) scrapeDetails(ctx context.Context, logger *slog.Logger, listings []models.ListingRecord) ([]models.DetailedRecord, error) {
	o.tracker.SetTotalItems(len(listings))
	logger.Info("listing pages done", slog.Int("items", len(listings)))

	kept := make([]models.DetailedRecord, 0, len(listings))
	for i, listing := range listings {
		doc, err := o.fetch(ctx, phaseDetail, listing.ItemURL)
		if err != nil {
			return nil, err
		}

		record, ok := o.extractor.Detail(doc, listing)
		if ok {
			kept = append(kept, record)
			o.metrics.IncKept()
		} else {
			o.metrics.IncDropped()
			logger.Debug("detail page missing required fields", slog.String("url", listing.ItemURL))
		}
		o.tracker.IncrementScrapedItems(ok)

		if (i+1)%50 == 0 {
			logger.Debug("detail progress",
				slog.Int("scraped", i+1),
				slog.Int("total", len(listings)),
				slog.Int("kept", len(kept)),
			)
		}

		if err := o.pause(ctx); err != nil {
			return nil, err
		}
	}
	return kept, nil
}

// pause waits the politeness delay.
func (o *Orchestrator) pause(ctx context.Context) error {
	if o.cfg.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(o.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("scrape interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) publish(ctx context.Context, state models.JobState, logger *slog.Logger) {
	if o.archive != nil {
		o.archive.Add(state)
	}
	recordCtx := context.WithoutCancel(ctx)
	for _, r := range o.recorders {
		if err := r.Record(recordCtx, state); err != nil {
			logger.Error("recording job failed", slog.Any("error", err))
		}
	}
}
