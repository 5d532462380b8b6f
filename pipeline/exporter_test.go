package pipeline

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func readExport(t *testing.T, data []byte) [][]string {
	t.Helper()
	reader := csv.NewReader(transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder()))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func TestSerializeCSVRoundTrip(t *testing.T) {
	rows := []models.DetailedRecord{
		{SKU: "SKU-1", ItemName: "Teapot", ItemURL: "http://example.test/item/A1", Price: "1200"},
		{SKU: "SKU-2", ItemName: "Cup, \"large\"", ItemURL: "http://example.test/item/B2", Price: "300.50"},
		{SKU: "SKU-3", ItemName: "急須\nsecond line", ItemURL: "http://example.test/item/C3", Price: ""},
	}

	data, err := SerializeCSV(rows)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\xef\xbb\xbf")) {
		t.Fatalf("export missing byte order mark: %q", data[:8])
	}
	if !bytes.HasPrefix(data[3:], []byte("sku,itemName,itemUrl,price\n")) {
		t.Fatalf("unexpected header line: %q", data)
	}

	records := readExport(t, data)
	if len(records) != len(rows)+1 {
		t.Fatalf("records=%d, want %d", len(records), len(rows)+1)
	}
	for i, row := range rows {
		want := []string{row.SKU, row.ItemName, row.ItemURL, row.Price}
		if !reflect.DeepEqual(records[i+1], want) {
			t.Fatalf("row %d = %q, want %q", i, records[i+1], want)
		}
	}
}

func TestSerializeCSVEmpty(t *testing.T) {
	data, err := SerializeCSV(nil)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if data == nil || len(data) != 0 {
		t.Fatalf("expected empty non-nil buffer, got %q", data)
	}
}

func TestSaveExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.csv")
	if err := SaveExport(path, []byte("sku\n")); err != nil {
		t.Fatalf("save export: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(got) != "sku\n" {
		t.Fatalf("file content = %q", got)
	}
}
