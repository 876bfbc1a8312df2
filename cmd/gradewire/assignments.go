package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func assignmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignments <course>",
		Short: "List a course's assignments",
		Args:  cobra.ExactArgs(1),
		RunE:  runAssignments,
	}
	cmd.Flags().String("search", "", "Filter by name substring")
	return cmd
}

func runAssignments(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := a.openSession(ctx, args[0])
	if err != nil {
		return err
	}
	assignments, err := a.course.Assignments(ctx, s.CourseID(), a.v.GetString("search"))
	if err != nil {
		return err
	}
	for _, asn := range assignments {
		due := "-"
		if asn.DueAt != nil {
			due = asn.DueAt.In(s.Location()).Format("2006-01-02 15:04")
		}
		fmt.Printf("%-10d %6.1f  %-16s %s\n", asn.ID, asn.PointsPossible, due, asn.Name)
	}
	return nil
}
