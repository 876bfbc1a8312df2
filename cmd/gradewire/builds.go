package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func buildsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builds [id]",
		Short: "Show journaled survey builds and import runs",
		Long: `List journaled survey builds, newest first. With an id, show every remote
object that build created, so a partial build can be inspected and cleaned
up by hand. --imports lists score import runs instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBuilds,
	}
	cmd.Flags().Bool("imports", false, "List import runs instead of builds")
	return cmd
}

func runBuilds(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	a := &app{v: viperForCmd(cmd)}

	journal, err := a.openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid build id %q", args[0])
		}
		b, err := journal.Build(id)
		if err != nil {
			return fmt.Errorf("build %d: %w", id, err)
		}
		objects, err := journal.BuildObjects(id)
		if err != nil {
			return err
		}
		fmt.Printf("build %d: %q for %s (%s), started %s\n",
			b.ID, b.SurveyName, b.CourseName, b.Status, b.StartedAt.Format(time.RFC3339))
		for _, o := range objects {
			fmt.Printf("  %-14s %s\n", o.Kind, o.RemoteID)
		}
		return nil
	}

	if a.v.GetBool("imports") {
		runs, err := journal.ImportRuns()
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Printf("%s  %-24s %-12s scored %d, unresolved %d (from %s)\n",
				r.StartedAt.Format("2006-01-02 15:04"), r.CourseName, r.Assignment,
				r.Scored, r.Unresolved, r.Source)
		}
		return nil
	}

	builds, err := journal.Builds()
	if err != nil {
		return err
	}
	for _, b := range builds {
		fmt.Printf("%-5d %-12s %s  %q\n", b.ID, b.Status,
			b.StartedAt.Format("2006-01-02 15:04"), b.SurveyName)
	}
	return nil
}
