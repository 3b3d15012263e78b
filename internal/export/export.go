// Package export writes result records as a plain URL list or as CSV
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
)

// Format selects the output layout
type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "txt" or "csv", case-insensitive
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (use txt or csv)", s)
}

// FormatFor guesses the format from a file extension, defaulting to text
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatText
}

// WriteURLs writes one URL per line
func WriteURLs(w io.Writer, records []models.ResultRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := bw.WriteString(r.URL + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

var csvHeader = []string{"url", "subcat", "city", "zip_code", "date"}

// WriteCSV writes a header row and one row per record
func WriteCSV(w io.Writer, records []models.ResultRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		day := ""
		if r.HasDay() {
			day = normalize.FormatDay(r.Day)
		}
		if err := cw.Write([]string{r.URL, r.Subcat, r.City, r.ZipCode, day}); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write dispatches on format
func Write(w io.Writer, format Format, records []models.ResultRecord) error {
	if format == FormatCSV {
		return WriteCSV(w, records)
	}
	return WriteURLs(w, records)
}

// SaveFile writes records to path, creating parent directories
func SaveFile(path string, format Format, records []models.ResultRecord) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(f, format, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
