package course

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.csv")
	rows := []CacheRow{
		{ExternalID: "asmith", DisplayName: "Smith, Alice", RawScore: 6, ComputedScore: 7.5, LateFlag: true},
		{ExternalID: "bjones", DisplayName: "Jones, Bob", RawScore: 9, ComputedScore: 10},
	}
	if err := WriteCache(path, rows); err != nil {
		t.Fatalf("WriteCache: %v", err)
	}

	got, err := ReadCache(path)
	if err != nil {
		t.Fatalf("ReadCache: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ExternalID != "asmith" || got[0].ComputedScore != 7.5 || !got[0].LateFlag {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[1].LateFlag {
		t.Errorf("row 1 late flag set: %+v", got[1])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.HasPrefix(string(data), "external_id,") {
		t.Errorf("unexpected header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}

	// A rewrite replaces the file rather than appending.
	if err := WriteCache(path, rows[:1]); err != nil {
		t.Fatalf("WriteCache rewrite: %v", err)
	}
	got, err = ReadCache(path)
	if err != nil {
		t.Fatalf("ReadCache after rewrite: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 row after rewrite, got %d", len(got))
	}
}

func TestReadCacheMissing(t *testing.T) {
	_, err := ReadCache(filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
