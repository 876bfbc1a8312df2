package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func coursesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the courses the token can administer",
		Args:  cobra.NoArgs,
		RunE:  runCourses,
	}
}

func runCourses(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	courses, err := a.course.Courses(cmd.Context())
	if err != nil {
		return err
	}
	for _, c := range courses {
		fmt.Printf("%-8d %-12s %s\n", c.ID, c.CourseCode, c.Name)
	}
	return nil
}
