package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/survey"
)

func slotSurveyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot-survey <course>",
		Short: "Build a sign-up survey whose choices close as they fill",
		Long: `Build a sign-up survey with one quota per choice: a choice stays visible
exactly while fewer than --capacity respondents have picked it.`,
		Args: cobra.ExactArgs(1),
		RunE: runSlotSurvey,
	}
	f := cmd.Flags()
	f.String("title", "", "Survey title (required)")
	f.StringSlice("choice", nil, "Selectable option, repeat per choice (required)")
	f.Int("capacity", 1, "Respondents per choice before it closes")
	f.String("prompt", "", "Selector question text")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("choice")
	return cmd
}

func runSlotSurvey(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := a.openSession(ctx, args[0])
	if err != nil {
		return err
	}

	journal, err := a.openJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	builder := &survey.Builder{Platform: a.survey, Journal: journal}
	h, err := builder.BuildQuotaSurvey(ctx, survey.QuotaParams{
		Title:      a.v.GetString("title"),
		CourseName: s.Course().Name,
		Prompt:     a.v.GetString("prompt"),
		Choices:    a.v.GetStringSlice("choice"),
		Capacity:   a.v.GetInt("capacity"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("survey %q built (%s): %d choices, capacity %d each\n",
		h.Name, h.SurveyID, len(h.QuotaIDs), a.v.GetInt("capacity"))
	return nil
}
