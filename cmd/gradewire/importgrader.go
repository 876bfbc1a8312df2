package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/canvas"
	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/grades"
)

func importGraderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-grader <course> <number>",
		Short: "Import an external autograder report into the gradebook",
		Args:  cobra.ExactArgs(2),
		RunE:  runImportGrader,
	}
	f := cmd.Flags()
	f.String("report", "", "Autograder report CSV (required)")
	f.String("title", "", "Assignment name (default \"MATLAB <number>\")")
	f.String("due", "", "Due date, YYYY-MM-DD (default: the assignment's)")
	f.String("due-clock", "", "Due time of day (default from --due-time)")
	f.Float64("points", 10, "Points when the assignment must be created")
	f.Bool("check-late", true, "Apply the late policy")
	f.Int("max-days-late", 3, "Days late after which a problem scores zero")
	f.Float64("late-penalty", 0.25, "Per-problem fraction deducted when late")
	f.Bool("dry-run", false, "Compute and report without uploading")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}

func runImportGrader(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := a.openSession(ctx, args[0])
	if err != nil {
		return err
	}
	n, err := parseNumber(args[1])
	if err != nil {
		return err
	}
	roster, err := s.FetchRoster(ctx)
	if err != nil {
		return err
	}

	title := a.v.GetString("title")
	if title == "" {
		title = fmt.Sprintf("MATLAB %d", n)
	}
	assignment, err := findOrCreateGraderAssignment(cmd, a, s, title)
	if err != nil {
		return err
	}

	opts := grades.Options{
		CheckLate:   a.v.GetBool("check-late"),
		MaxDaysLate: a.v.GetInt("max-days-late"),
		LatePenalty: a.v.GetFloat64("late-penalty"),
	}
	var due time.Time
	if opts.CheckLate {
		due, err = graderDue(a, s, assignment)
		if err != nil {
			return err
		}
	}

	reportPath := a.v.GetString("report")
	rows, err := grades.ReadGraderReport(reportPath)
	if err != nil {
		return err
	}

	journal, err := a.openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	imp := &grades.Importer{Course: a.course, Recorder: journal}
	report, err := imp.ImportGrader(rows, grades.GraderParams{
		CourseName: s.Course().Name,
		Roster:     roster,
		Assignment: assignment,
		Due:        due,
		Source:     reportPath,
	}, opts)
	if err != nil {
		return err
	}

	printResults(report.Results)

	if a.v.GetBool("dry-run") {
		fmt.Println("dry run: nothing uploaded")
	} else {
		unmatched, err := imp.Upload(ctx, s.CourseID(), assignment.ID, report.Results)
		if err != nil {
			return err
		}
		if len(unmatched) > 0 {
			fmt.Printf("not uploaded (no gradebook identity): %s\n", strings.Join(unmatched, ", "))
		}
	}

	return report.UnresolvedError()
}

// findOrCreateGraderAssignment resolves the autograder assignment by name,
// creating it in the grader group on first import.
func findOrCreateGraderAssignment(cmd *cobra.Command, a *app, s *course.Session, title string) (*canvas.Assignment, error) {
	ctx := cmd.Context()
	assignment, err := s.AssignmentByName(ctx, title)
	var lookupErr *course.LookupError
	if errors.As(err, &lookupErr) && lookupErr.Matches == 0 {
		return s.CreateAssignment(ctx, course.AssignmentParams{
			Name:            title,
			GroupName:       "MATLAB Assignments",
			PointsPossible:  a.v.GetFloat64("points"),
			SubmissionTypes: []string{"none"},
			Published:       true,
		})
	}
	return assignment, err
}

// graderDue picks the deadline report timestamps are judged against: --due
// when given, otherwise the assignment's own due date, in the course time
// zone either way.
func graderDue(a *app, s *course.Session, assignment *canvas.Assignment) (time.Time, error) {
	if d := a.v.GetString("due"); d != "" {
		due, err := s.LocalizeDue(d, a.v.GetString("due-clock"))
		if err != nil {
			return time.Time{}, err
		}
		return due.In(s.Location()), nil
	}
	if assignment.DueAt == nil {
		return time.Time{}, fmt.Errorf("no due date: pass --due or set one on %q", assignment.Name)
	}
	return assignment.DueAt.In(s.Location()), nil
}
