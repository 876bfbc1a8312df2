package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/course"
	"github.com/campus-tools/gradewire/internal/survey"
)

func setupSelfgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup-selfgrade <course> <number>",
		Short: "Build and distribute the self-grade survey for an assignment",
		Long: `Build the self-grade survey for an assignment, publish it as a private
invitation-only survey, distribute individual links to the course mailing
list, and comment each student's one-time link onto their submission.`,
		Args: cobra.ExactArgs(2),
		RunE: runSetupSelfgrade,
	}
	f := cmd.Flags()
	f.IntP("questions", "q", 0, "Number of graded problems (0 = single overall grade)")
	f.String("score-options", "", "Comma-separated score choices (default 0,1,2,3; single mode 0..10)")
	f.IntSlice("ec", nil, "Problem numbers that are extra credit")
	f.String("share-with", "", "Survey platform user id to share the survey with")
	f.Bool("solutions", false, "Create the solutions assignment")
	f.String("solutions-file", "", "Solutions file to upload and link (implies --solutions)")
	f.Int("solutions-days", 7, "Days after the due date the solutions assignment is due")
	f.Int("solutions-unlock-days", 3, "Days after the due date the solutions unlock")
	return cmd
}

func runSetupSelfgrade(cmd *cobra.Command, args []string) error {
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
	domain, err := a.emailDomain()
	if err != nil {
		return err
	}

	var scale survey.Scale
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

	builder := &survey.Builder{Platform: a.survey, Journal: journal}
	h, err := builder.BuildScored(ctx, survey.ScoredParams{
		CourseName:     s.Course().Name,
		AssignmentName: assignment.Name,
		QuestionCount:  a.v.GetInt("questions"),
		Scale:          scale,
		ECProblems:     a.v.GetIntSlice("ec"),
		ShareWith:      a.v.GetString("share-with"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("survey %q built (%s)\n", h.Name, h.SurveyID)

	syncer := &course.AudienceSyncer{Dir: a.survey, EmailDomain: domain}
	audience, err := syncer.Sync(ctx, s.Course().Name, roster, false)
	if err != nil {
		return err
	}

	injector := &survey.LinkInjector{Survey: a.survey, Course: a.course, Journal: journal}
	links, err := injector.Distribute(ctx, h, audience.MailingListID)
	if err != nil {
		return err
	}
	missing, err := injector.InjectLinks(ctx, s.CourseID(), assignment.ID, roster, domain, links)
	if err != nil {
		return err
	}
	fmt.Printf("links delivered to %d of %d students\n", len(roster)-len(missing), len(roster))
	if len(missing) > 0 {
		fmt.Printf("no link for: %s\n", strings.Join(missing, ", "))
	}

	if a.v.GetBool("solutions") || a.v.GetString("solutions-file") != "" {
		if err := createSolutionsAssignment(cmd, a, s, assignment.Name, assignment.DueAt); err != nil {
			return err
		}
	}
	return nil
}

// createSolutionsAssignment creates the companion zero-point assignment that
// publishes the solutions a few days after the homework deadline.
func createSolutionsAssignment(cmd *cobra.Command, a *app, s *course.Session, hwName string, hwDue *time.Time) error {
	if hwDue == nil {
		return fmt.Errorf("assignment %s has no due date; cannot offset the solutions assignment", hwName)
	}
	ctx := cmd.Context()
	due := hwDue.AddDate(0, 0, a.v.GetInt("solutions-days"))
	unlock := hwDue.AddDate(0, 0, a.v.GetInt("solutions-unlock-days"))
	params := course.AssignmentParams{
		Name:            hwName + " Self-Grading",
		GroupName:       "Homework Self-Grading",
		SubmissionTypes: []string{"none"},
		Due:             &due,
		Unlock:          &unlock,
		Published:       true,
	}
	if file := a.v.GetString("solutions-file"); file != "" {
		desc, err := uploadAndLink(ctx, s, file, "Homeworks/"+hwName)
		if err != nil {
			return err
		}
		params.Description = desc
	}
	sol, err := s.CreateAssignment(ctx, params)
	if err != nil {
		return err
	}
	fmt.Printf("solutions assignment %q (id %d)\n", sol.Name, sol.ID)
	return nil
}
