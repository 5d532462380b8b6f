package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExportContentType is the media type of a serialized export.
const ExportContentType = "text/csv; charset=utf-8"

// SerializeCSV renders rows as UTF-8 CSV with a leading byte order mark.
// The header is taken from the csv tags of the first row; no rows means an
// empty, non-nil buffer.
func SerializeCSV(rows []models.DetailedRecord) ([]byte, error) {
	if len(rows) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	bom := transform.NewWriter(&buf, unicode.UTF8BOM.NewEncoder())
	writer := csv.NewWriter(bom)

	if err := writer.Write(columns(rows[0])); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(values(row)); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv records: %w", err)
	}
	if err := bom.Close(); err != nil {
		return nil, fmt.Errorf("close csv encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveExport writes a finished export to filename, creating parent directories.
func SaveExport(filename string, data []byte) error {
	if err := ensureDir(filename); err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

func columns(row models.DetailedRecord) []string {
	t := reflect.TypeOf(row)
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("csv")
		if name == "" {
			name = t.Field(i).Name
		}
		out = append(out, name)
	}
	return out
}

func values(row models.DetailedRecord) []string {
	v := reflect.ValueOf(row)
	out := make([]string, 0, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		out = append(out, fmt.Sprint(v.Field(i).Interface()))
	}
	return out
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
