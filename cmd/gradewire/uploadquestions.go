package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/course"
)

func uploadQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload-questions <course>",
		Short: "Create a quiz from a tab-separated question bank",
		Args:  cobra.ExactArgs(1),
		RunE:  runUploadQuestions,
	}
	f := cmd.Flags()
	f.String("bank", "", "Question bank file (required)")
	f.String("title", "", "Quiz title (required)")
	_ = cmd.MarkFlagRequired("bank")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func runUploadQuestions(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := a.openSession(ctx, args[0])
	if err != nil {
		return err
	}

	path := a.v.GetString("bank")
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open question bank %s: %w", path, err)
	}
	defer fh.Close()
	questions, err := course.ParseQuestionBank(fh)
	if err != nil {
		return err
	}

	quiz, err := s.UploadQuestionBank(ctx, a.v.GetString("title"), questions)
	if err != nil {
		return err
	}
	fmt.Printf("quiz %q (id %d): %d questions\n", quiz.Title, quiz.ID, len(questions))
	return nil
}
