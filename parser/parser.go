// Package parser holds the text rules applied to scraped catalog fields.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

// ValidateDetail ensures the detail page yielded the required fields.
func ValidateDetail(r *models.DetailedRecord) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.SKU) == "" {
		return fmt.Errorf("record missing sku for %s", r.ItemURL)
	}
	if strings.TrimSpace(r.ItemName) == "" {
		return fmt.Errorf("record missing item name for %s", r.ItemURL)
	}
	return nil
}

// NormalizePrice keeps only digits and decimal points.
func NormalizePrice(price string) string {
	var b strings.Builder
	b.Grow(len(price))
	for _, r := range price {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParsePageIndex reads the number between the last separator and the file
// extension of href, e.g. "list_p12.html" with separator "_p" gives 12.
func ParsePageIndex(href, separator string) (int, bool) {
	if separator == "" {
		return 0, false
	}
	idx := strings.LastIndex(href, separator)
	if idx < 0 {
		return 0, false
	}
	rest := href[idx+len(separator):]
	dot := strings.Index(rest, ".")
	if dot <= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:dot])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ItemIDFromElementID returns the part of a thumbnail id after the first separator.
func ItemIDFromElementID(id, separator string) (string, bool) {
	_, after, found := strings.Cut(strings.TrimSpace(id), separator)
	if !found || after == "" {
		return "", false
	}
	return after, true
}

// ItemURL joins the fixed item prefix with an item identifier.
func ItemURL(prefix, itemID string) string {
	return prefix + itemID
}
