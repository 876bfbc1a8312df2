package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/course"
)

func syncRosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-roster <course>",
		Short: "Fetch enrollment and mirror it onto the course mailing list",
		Args:  cobra.ExactArgs(1),
		RunE:  runSyncRoster,
	}
	f := cmd.Flags()
	f.Bool("prune", false, "Remove mailing-list contacts no longer enrolled")
	f.String("list-name", "", "Mailing list name (default: the course name)")
	f.String("cache", "", "Write the roster cache CSV to this path")
	return cmd
}

func runSyncRoster(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := a.openSession(ctx, args[0])
	if err != nil {
		return err
	}
	roster, err := s.FetchRoster(ctx)
	if err != nil {
		return err
	}
	domain, err := a.emailDomain()
	if err != nil {
		return err
	}

	name := a.v.GetString("list-name")
	if name == "" {
		name = s.Course().Name
	}
	syncer := &course.AudienceSyncer{Dir: a.survey, EmailDomain: domain}
	h, err := syncer.Sync(ctx, name, roster, a.v.GetBool("prune"))
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d students; list %q: %d added, %d kept, %d removed\n",
		s.Course().Name, len(roster), h.Name, h.Added, h.Kept, h.Removed)

	if path := a.v.GetString("cache"); path != "" {
		rows := make([]course.CacheRow, 0, len(roster))
		for _, st := range roster {
			rows = append(rows, course.CacheRow{ExternalID: st.ExternalID, DisplayName: st.DisplayName})
		}
		if err := course.WriteCache(path, rows); err != nil {
			return err
		}
		fmt.Printf("roster cache written to %s\n", path)
	}
	return nil
}
