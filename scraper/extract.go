package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-catalog/config"
	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/aluiziolira/go-scrape-catalog/parser"
)

// Selectors for the target catalog markup.
const (
	PaginationSelector = "div.pager a.pager-link"
	ThumbnailSelector  = "div.item-list div.item-thumb"
	PriceSelector      = "div.item-list span.item-price"
	SKUSelector        = "#item-detail .item-sku"
	ItemNameSelector   = "#item-detail h1.item-name"
)

// Extractor applies the fixed selectors to listing and detail documents.
type Extractor struct {
	pageSeparator string
	itemURLPrefix string
	idSeparator   string
}

// NewExtractor builds an extractor from the site settings in cfg.
func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{
		pageSeparator: cfg.PageSeparator,
		itemURLPrefix: cfg.ItemURLPrefix,
		idSeparator:   cfg.ThumbnailIDSeparator,
	}
}

// PageCount reads the total page count from the last pagination link of the
// first listing page. It never fails: anything unexpected means one page.
func (e *Extractor) PageCount(doc *goquery.Document) int {
	last := doc.Find(PaginationSelector).Last()
	if last.Length() == 0 {
		return 1
	}
	href, ok := last.Attr("href")
	if !ok {
		return 1
	}
	n, ok := parser.ParsePageIndex(href, e.pageSeparator)
	if !ok {
		return 1
	}
	return n
}

// Listings pairs the i-th thumbnail with the i-th price in document order.
// Pairing stops at the shorter selection; a thumbnail without a usable id
// drops only its own pair.
func (e *Extractor) Listings(doc *goquery.Document) []models.ListingRecord {
	thumbs := doc.Find(ThumbnailSelector)
	prices := doc.Find(PriceSelector)

	n := min(thumbs.Length(), prices.Length())
	records := make([]models.ListingRecord, 0, n)
	for i := 0; i < n; i++ {
		id, _ := thumbs.Eq(i).Attr("id")
		itemID, ok := parser.ItemIDFromElementID(id, e.idSeparator)
		if !ok {
			continue
		}
		records = append(records, models.ListingRecord{
			ItemURL: parser.ItemURL(e.itemURLPrefix, itemID),
			Price:   parser.NormalizePrice(prices.Eq(i).Text()),
		})
	}
	return records
}

// Detail merges the detail page fields with the carried listing record.
// It returns false when sku or item name is missing.
func (e *Extractor) Detail(doc *goquery.Document, carried models.ListingRecord) (models.DetailedRecord, bool) {
	record := models.DetailedRecord{
		SKU:      strings.TrimSpace(doc.Find(SKUSelector).First().Text()),
		ItemName: strings.TrimSpace(doc.Find(ItemNameSelector).First().Text()),
		ItemURL:  carried.ItemURL,
		Price:    carried.Price,
	}
	if err := parser.ValidateDetail(&record); err != nil {
		return models.DetailedRecord{}, false
	}
	return record, true
}
