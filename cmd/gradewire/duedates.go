package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/course"
)

func dueDatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due-dates <course> <number>",
		Short: "Apply per-section due-date overrides from a CSV",
		Args:  cobra.ExactArgs(2),
		RunE:  runDueDates,
	}
	f := cmd.Flags()
	f.String("csv", "", "Override CSV: section, due_date, due_time[, from/until dates] (required)")
	f.Bool("force", false, "Replace existing overrides")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}

func runDueDates(cmd *cobra.Command, args []string) error {
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
	assignment, err := s.AssignmentByNumber(ctx, n)
	if err != nil {
		return err
	}
	rows, err := course.ReadOverrideCSV(a.v.GetString("csv"))
	if err != nil {
		return err
	}
	created, err := s.ApplyOverrides(ctx, assignment.ID, rows, a.v.GetBool("force"))
	if err != nil {
		return err
	}
	fmt.Printf("%d overrides applied to %s\n", len(created), assignment.Name)
	return nil
}
