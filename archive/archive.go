// Package archive keeps the most recent terminal jobs so their results stay
// retrievable after the next job starts.
package archive

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-catalog/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrJobNotFound is returned for ids that were never archived or were evicted.
var ErrJobNotFound = errors.New("archive: job not found")

// Archive is a bounded, concurrency-safe store of terminal job states.
type Archive struct {
	cache *lru.Cache[string, models.JobState]
}

// New returns an archive that holds up to size jobs.
func New(size int) (*Archive, error) {
	cache, err := lru.New[string, models.JobState](size)
	if err != nil {
		return nil, fmt.Errorf("create job archive: %w", err)
	}
	return &Archive{cache: cache}, nil
}

// Add stores a terminal job state. Non-terminal states are ignored.
func (a *Archive) Add(state models.JobState) {
	if state.JobID == "" || !state.Status.Terminal() {
		return
	}
	a.cache.Add(state.JobID, state)
}

// Get returns the archived state for id without changing eviction order.
func (a *Archive) Get(id string) (models.JobState, error) {
	state, ok := a.cache.Peek(id)
	if !ok {
		return models.JobState{}, ErrJobNotFound
	}
	return state, nil
}

// List returns archived jobs from newest to oldest.
func (a *Archive) List() []models.JobState {
	keys := a.cache.Keys()
	out := make([]models.JobState, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if state, ok := a.cache.Peek(keys[i]); ok {
			out = append(out, state)
		}
	}
	return out
}

// Len reports the number of archived jobs.
func (a *Archive) Len() int {
	return a.cache.Len()
}
