package course

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/campus-tools/gradewire/internal/canvas"
)

// OverrideRow is one line of a due-date override CSV: a section name, the
// due date, and optional availability window dates. Times default to the
// session's due time of day.
type OverrideRow struct {
	Section   string `csv:"section"`
	DueDate   string `csv:"due_date"`
	DueTime   string `csv:"due_time"`
	FromDate  string `csv:"from_date"`
	FromTime  string `csv:"from_time"`
	UntilDate string `csv:"until_date"`
	UntilTime string `csv:"until_time"`
}

// ReadOverrideCSV reads a due-date override CSV.
func ReadOverrideCSV(path string) ([]OverrideRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read override CSV: %w", err)
	}
	defer f.Close()
	var rows []OverrideRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read override CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("override CSV %s has no rows", path)
	}
	return rows, nil
}

// ApplyOverrides creates one per-section date override per CSV row on an
// assignment. An assignment that already has overrides is left alone unless
// force is set, in which case the existing overrides are deleted first.
func (s *Session) ApplyOverrides(ctx context.Context, assignmentID int64, rows []OverrideRow, force bool) ([]canvas.Override, error) {
	existing, err := s.api.Overrides(ctx, s.course.ID, assignmentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		if !force {
			return nil, fmt.Errorf("assignment %d already has %d overrides; re-run with force to replace them", assignmentID, len(existing))
		}
		for _, o := range existing {
			if err := s.api.DeleteOverride(ctx, s.course.ID, assignmentID, o.ID); err != nil {
				return nil, err
			}
		}
		slog.Info("existing overrides deleted", "assignment", assignmentID, "count", len(existing))
	}

	var created []canvas.Override
	for i, row := range rows {
		sec, err := s.SectionByName(ctx, row.Section)
		if err != nil {
			return created, fmt.Errorf("override row %d: %w", i+1, err)
		}
		due, err := s.LocalizeDue(row.DueDate, row.DueTime)
		if err != nil {
			return created, fmt.Errorf("override row %d: %w", i+1, err)
		}
		o := canvas.Override{CourseSectionID: sec.ID, DueAt: &due}
		if row.FromDate != "" {
			from, err := s.LocalizeDue(row.FromDate, row.FromTime)
			if err != nil {
				return created, fmt.Errorf("override row %d: %w", i+1, err)
			}
			o.UnlockAt = &from
		}
		if row.UntilDate != "" {
			until, err := s.LocalizeDue(row.UntilDate, row.UntilTime)
			if err != nil {
				return created, fmt.Errorf("override row %d: %w", i+1, err)
			}
			o.LockAt = &until
		}
		made, err := s.api.CreateOverride(ctx, s.course.ID, assignmentID, o)
		if err != nil {
			return created, fmt.Errorf("override row %d (%s): %w", i+1, row.Section, err)
		}
		created = append(created, *made)
		slog.Info("override created", "assignment", assignmentID, "section", row.Section, "due", due.Format(time.RFC3339))
	}
	return created, nil
}
