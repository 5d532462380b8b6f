package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
)

func TestValidateDetail(t *testing.T) {
	tests := []struct {
		name    string
		record  *models.DetailedRecord
		wantErr bool
	}{
		{
			name: "valid record",
			record: &models.DetailedRecord{
				SKU:      "SKU-1",
				ItemName: "Teapot",
				ItemURL:  "http://example.test/item/1",
				Price:    "1200",
			},
			wantErr: false,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: true,
		},
		{
			name: "missing sku",
			record: &models.DetailedRecord{
				SKU:      "   ",
				ItemName: "Teapot",
			},
			wantErr: true,
		},
		{
			name: "missing item name",
			record: &models.DetailedRecord{
				SKU:      "SKU-1",
				ItemName: "",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDetail(tt.record)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDetail() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "yen with thousands separator",
			input:    "¥1,200",
			expected: "1200",
		},
		{
			name:     "trailing tax label",
			input:    "¥1,200.(税込)",
			expected: "1200.",
		},
		{
			name:     "decimal price",
			input:    "  $10.50  ",
			expected: "10.50",
		},
		{
			name:     "already clean",
			input:    "25.99",
			expected: "25.99",
		},
		{
			name:     "full-width digits are dropped",
			input:    "１２円",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePrice(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePrice(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParsePageIndex(t *testing.T) {
	tests := []struct {
		name   string
		href   string
		want   int
		wantOK bool
	}{
		{name: "relative", href: "list_p12.html", want: 12, wantOK: true},
		{name: "absolute", href: "https://shop.example.com/catalog/list_p3.html", want: 3, wantOK: true},
		{name: "query after extension", href: "/catalog/list_p4.html?sort=new", want: 4, wantOK: true},
		{name: "no separator", href: "/catalog/list.html", wantOK: false},
		{name: "no extension", href: "/catalog/list_p4", wantOK: false},
		{name: "not a number", href: "/catalog/list_pX.html", wantOK: false},
		{name: "zero page", href: "/catalog/list_p0.html", wantOK: false},
		{name: "empty", href: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePageIndex(tt.href, "_p")
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParsePageIndex(%q) = (%d, %v), want (%d, %v)", tt.href, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestItemIDFromElementID(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "thumb_A1001", want: "A1001", wantOK: true},
		{input: "thumb_A_1001", want: "A_1001", wantOK: true},
		{input: "thumb", wantOK: false},
		{input: "thumb_", wantOK: false},
		{input: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ItemIDFromElementID(tt.input, "_")
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ItemIDFromElementID(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}

	if got := ItemURL("http://example.test/item/", "A1001"); got != "http://example.test/item/A1001" {
		t.Errorf("ItemURL = %q", got)
	}
}
