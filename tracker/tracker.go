// Package tracker holds the process-wide state of the current scrape job.
package tracker

import (
	"errors"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

var (
	// ErrJobRunning is returned by Reset while a job is in progress.
	ErrJobRunning = errors.New("tracker: job already running")
	// ErrExportNotReady is returned by Export until a job has finished.
	ErrExportNotReady = errors.New("tracker: export not ready")
)

// Tracker guards a single JobState. Every read and write goes through its
// methods, so counters only grow during a job and an export is present
// exactly when the status is finished.
type Tracker struct {
	mu    sync.Mutex
	state models.JobState
	now   func() time.Time
}

// New returns an idle tracker.
func New() *Tracker {
	return &Tracker{
		state: models.JobState{Status: models.StatusIdle},
		now:   time.Now,
	}
}

// Reset starts a new job under jobID, replacing the previous state wholesale.
func (t *Tracker) Reset(jobID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Status == models.StatusInProgress {
		return ErrJobRunning
	}
	started := t.now()
	t.state = models.JobState{
		JobID:     jobID,
		Status:    models.StatusInProgress,
		StartedAt: &started,
	}
	return nil
}

// SetTotalPages records the page count. It never lowers the count below the
// pages already scraped.
func (t *Tracker) SetTotalPages(n int) {
	t.update(func(s *models.JobState) {
		s.TotalPages = max(n, s.ScrapedPages)
	})
}

// IncrementScrapedPages counts one listing page, capped at the total.
func (t *Tracker) IncrementScrapedPages() {
	t.update(func(s *models.JobState) {
		if s.ScrapedPages < s.TotalPages {
			s.ScrapedPages++
		}
	})
}

// SetTotalItems records the number of listing records to visit.
func (t *Tracker) SetTotalItems(n int) {
	t.update(func(s *models.JobState) {
		s.TotalItems = max(n, s.ScrapedItems)
	})
}

// IncrementScrapedItems counts one visited detail page and, when kept is
// true, one exported record.
func (t *Tracker) IncrementScrapedItems(kept bool) {
	t.update(func(s *models.JobState) {
		if s.ScrapedItems >= s.TotalItems {
			return
		}
		s.ScrapedItems++
		if kept {
			s.KeptItems++
		}
	})
}

// Finish attaches the export and marks the job finished in one step. It
// returns the resulting state.
func (t *Tracker) Finish(export []byte) models.JobState {
	if export == nil {
		export = []byte{}
	}
	return t.update(func(s *models.JobState) {
		finished := t.now()
		s.Export = export
		s.Status = models.StatusFinished
		s.FinishedAt = &finished
	})
}

// Fail marks the job failed with a reason and returns the resulting state.
func (t *Tracker) Fail(reason string) models.JobState {
	return t.update(func(s *models.JobState) {
		finished := t.now()
		s.Status = models.StatusFailed
		s.Reason = reason
		s.Export = nil
		s.FinishedAt = &finished
	})
}

// Snapshot returns a consistent copy of the current state. The export
// buffer is shared; it is never written after Finish.
func (t *Tracker) Snapshot() models.JobState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Export returns the finished export or ErrExportNotReady.
func (t *Tracker) Export() ([]byte, error) {
	s := t.Snapshot()
	if !s.HasExport() {
		return nil, ErrExportNotReady
	}
	return s.Export, nil
}

// update applies fn only while a job is in progress and returns the state
// as of the end of the call.
func (t *Tracker) update(fn func(*models.JobState)) models.JobState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Status == models.StatusInProgress {
		fn(&t.state)
	}
	return t.state
}
