package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds scraper and service configuration.
type Config struct {
	BaseURL              string        `mapstructure:"base_url"`
	ListingPathFormat    string        `mapstructure:"listing_path_format"`
	PageSeparator        string        `mapstructure:"page_separator"`
	ItemURLPrefix        string        `mapstructure:"item_url_prefix"`
	ThumbnailIDSeparator string        `mapstructure:"thumbnail_id_separator"`
	MaxPages             int           `mapstructure:"max_pages"`
	Delay                time.Duration `mapstructure:"delay"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	RetryBackoff         time.Duration `mapstructure:"retry_backoff"`
	RetryBackoffMax      time.Duration `mapstructure:"retry_backoff_max"`
	UserAgent            string        `mapstructure:"user_agent"`
	DetectCharset        bool          `mapstructure:"detect_charset"`
	ListenAddr           string        `mapstructure:"listen_addr"`
	ExportFilename       string        `mapstructure:"export_filename"`
	OutputFile           string        `mapstructure:"output_file"`
	ArchiveSize          int           `mapstructure:"archive_size"`
	MongoURI             string        `mapstructure:"mongo_uri"`
	MongoDatabase        string        `mapstructure:"mongo_database"`
	MongoCollection      string        `mapstructure:"mongo_collection"`
	Verbose              bool          `mapstructure:"verbose"`
}

// DefaultConfig returns conservative defaults for the catalog target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:              "https://shop.example.com",
		ListingPathFormat:    "/catalog/list_p%d.html",
		PageSeparator:        "_p",
		ItemURLPrefix:        "https://shop.example.com/item/",
		ThumbnailIDSeparator: "_",
		MaxPages:             200,
		Delay:                1 * time.Second,
		Timeout:              20 * time.Second,
		MaxRetries:           2,
		RetryBackoff:         200 * time.Millisecond,
		RetryBackoffMax:      2 * time.Second,
		UserAgent:            "catalog-export/1.0 (+https://shop.example.com/robots.txt)",
		DetectCharset:        true,
		ListenAddr:           ":8080",
		ExportFilename:       "catalog.csv",
		OutputFile:           "",
		ArchiveSize:          16,
		MongoDatabase:        "catalog",
		MongoCollection:      "jobs",
		Verbose:              false,
	}
}

// ListingURL returns the absolute URL of a 1-based listing page.
func (c *Config) ListingURL(page int) string {
	return strings.TrimSuffix(c.BaseURL, "/") + fmt.Sprintf(c.ListingPathFormat, page)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if !strings.Contains(c.ListingPathFormat, "%d") {
		return fmt.Errorf("listing path format must contain %%d")
	}
	if c.PageSeparator == "" {
		return fmt.Errorf("page separator cannot be empty")
	}
	if c.ItemURLPrefix == "" {
		return fmt.Errorf("item URL prefix cannot be empty")
	}
	if c.ThumbnailIDSeparator == "" {
		return fmt.Errorf("thumbnail id separator cannot be empty")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.ExportFilename == "" {
		return fmt.Errorf("export filename cannot be empty")
	}
	if c.ArchiveSize <= 0 {
		return fmt.Errorf("archive size must be positive")
	}
	if c.MongoURI != "" && (c.MongoDatabase == "" || c.MongoCollection == "") {
		return fmt.Errorf("mongo database and collection are required when mongo URI is set")
	}

	return nil
}
