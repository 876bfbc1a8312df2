package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/grades"
	"github.com/campus-tools/gradewire/internal/survey"
)

func importScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-scores <course> <number>",
		Short: "Import self-grade survey responses into the gradebook",
		Args:  cobra.ExactArgs(2),
		RunE:  runImportScores,
	}
	f := cmd.Flags()
	f.Bool("check-late", true, "Apply the late policy")
	f.Int("max-days-late", 3, "Days late after which the score is zero")
	f.Float64("late-penalty", 0.25, "Fraction of the points deducted when late")
	f.Float64("ec-cap", 3, "Maximum extra-credit points")
	f.Bool("single", false, "Single overall grade survey (no scaling)")
	f.String("score-options", "", "Comma-separated score choices the survey was built with (default 0,1,2,3)")
	f.Bool("dry-run", false, "Compute and report without uploading")
	f.String("cache", "", "Write the score cache CSV to this path")
	return cmd
}

func runImportScores(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
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
	assignment, err := s.AssignmentByNumber(ctx, n)
	if err != nil {
		return err
	}
	roster, err := s.FetchRoster(ctx)
	if err != nil {
		return err
	}

	surveyName := survey.Name(s.Course().Name, assignment.Name)
	surveyID, err := survey.FindByName(ctx, a.survey, surveyName)
	if err != nil {
		return err
	}

	opts := grades.Options{
		CheckLate:      a.v.GetBool("check-late"),
		MaxDaysLate:    a.v.GetInt("max-days-late"),
		LatePenalty:    a.v.GetFloat64("late-penalty"),
		ECScoreCap:     a.v.GetFloat64("ec-cap"),
		SingleQuestion: a.v.GetBool("single"),
	}
	scale := survey.DefaultScale()
	if opts.SingleQuestion {
		scale = survey.DefaultSingleScale()
	}
	if spec := a.v.GetString("score-options"); spec != "" {
		scale, err = survey.ParseScale(spec)
		if err != nil {
			return err
		}
	}

	journal, err := a.openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	imp := &grades.Importer{Survey: a.survey, Course: a.course, Recorder: journal}
	report, err := imp.Import(ctx, grades.ImportParams{
		CourseID:   s.CourseID(),
		CourseName: s.Course().Name,
		Roster:     roster,
		Assignment: assignment,
		SurveyID:   surveyID,
		SurveyName: surveyName,
		Scale:      scale,
	}, opts)
	if err != nil {
		return err
	}

	printResults(report.Results)

	if path := a.v.GetString("cache"); path != "" {
		if err := course.WriteCache(path, report.CacheRows()); err != nil {
			return err
		}
		fmt.Printf("score cache written to %s\n", path)
	}

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

	// Unresolved respondents fail the run, after everyone else's grades
	// landed.
	return report.UnresolvedError()
}

func printResults(results []grades.Result) {
	for _, r := range results {
		note := ""
		switch {
		case r.NoSubmission:
			note = "  (no submission)"
		case r.Late:
			note = fmt.Sprintf("  (%d days late, -%g)", r.DaysLate, r.Penalty)
		}
		fmt.Printf("%-14s %8.4g%s\n", r.ExternalID, r.FinalScore, note)
	}
}
