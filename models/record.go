// Package models defines data structures for the catalog scraper.
package models

import "time"

// ListingRecord is one item collected from a catalog listing page.
type ListingRecord struct {
	ItemURL string `json:"itemUrl"`
	Price   string `json:"price"`
}

// DetailedRecord merges a listing record with the fields of its detail page.
// Field order defines the export column order.
type DetailedRecord struct {
	SKU      string `csv:"sku" json:"sku"`
	ItemName string `csv:"itemName" json:"itemName"`
	ItemURL  string `csv:"itemUrl" json:"itemUrl"`
	Price    string `csv:"price" json:"price"`
}

// JobStatus is the lifecycle state of a scrape job.
type JobStatus string

const (
	StatusIdle       JobStatus = "idle"
	StatusInProgress JobStatus = "in_progress"
	StatusFinished   JobStatus = "finished"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends a job.
func (s JobStatus) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// JobState is a point-in-time view of the current job.
type JobState struct {
	JobID        string     `json:"jobId,omitempty"`
	Status       JobStatus  `json:"status"`
	Reason       string     `json:"reason,omitempty"`
	TotalPages   int        `json:"totalPages"`
	ScrapedPages int        `json:"scrapedPages"`
	TotalItems   int        `json:"totalItems"`
	ScrapedItems int        `json:"scrapedItems"`
	KeptItems    int        `json:"keptItems"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	Export       []byte     `json:"-"`
}

// HasExport reports whether the export can be served.
func (s JobState) HasExport() bool {
	return s.Status == StatusFinished && s.Export != nil
}
