package course

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// CacheRow is one line of the local roster cache CSV, the file kept for
// cross-referencing and manual audit after a score import.
type CacheRow struct {
	ExternalID    string  `csv:"external_id"`
	DisplayName   string  `csv:"display_name"`
	RawScore      float64 `csv:"raw_score"`
	ComputedScore float64 `csv:"computed_score"`
	LateFlag      bool    `csv:"late_flag"`
}

// WriteCache writes the roster cache CSV, replacing any previous file.
func WriteCache(path string, rows []CacheRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write roster cache: %w", err)
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("write roster cache: %w", err)
	}
	return nil
}

// ReadCache reads a roster cache CSV back.
func ReadCache(path string) ([]CacheRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read roster cache: %w", err)
	}
	defer f.Close()
	var rows []CacheRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read roster cache: %w", err)
	}
	return rows, nil
}
