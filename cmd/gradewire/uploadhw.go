package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/campus-tools/gradewire/internal/canvas"
	"github.com/campus-tools/gradewire/internal/course"
)

func uploadHWCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload-hw <course> <number>",
		Short: "Upload a homework file and create its assignment",
		Args:  cobra.ExactArgs(2),
		RunE:  runUploadHW,
	}
	f := cmd.Flags()
	f.String("file", "", "Homework file to upload (required)")
	f.String("due", "", "Due date, YYYY-MM-DD (required)")
	f.String("due-clock", "", "Due time of day (default from --due-time)")
	f.Float64("points", 10, "Assignment points")
	f.Int("unlock-days", 0, "Days before the due date the assignment unlocks (0 = immediately)")
	f.String("folder", "", "Course folder for the file (default \"Homeworks/<name>\")")
	f.String("group", "Assignments", "Assignment group")
	f.String("module", "", "Module to add the assignment to")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func runUploadHW(cmd *cobra.Command, args []string) error {
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
	name := s.AssignmentName(n)

	due, err := s.LocalizeDue(a.v.GetString("due"), a.v.GetString("due-clock"))
	if err != nil {
		return err
	}

	folder := a.v.GetString("folder")
	if folder == "" {
		folder = "Homeworks/" + name
	}
	desc, err := uploadAndLink(ctx, s, a.v.GetString("file"), folder)
	if err != nil {
		return err
	}

	params := course.AssignmentParams{
		Name:              name,
		PointsPossible:    a.v.GetFloat64("points"),
		Due:               &due,
		Description:       desc,
		GroupName:         a.v.GetString("group"),
		AllowedExtensions: []string{"pdf"},
		Published:         true,
	}
	if days := a.v.GetInt("unlock-days"); days > 0 {
		unlock := due.AddDate(0, 0, -days)
		params.Unlock = &unlock
	}
	created, err := s.CreateAssignment(ctx, params)
	if err != nil {
		return err
	}
	fmt.Printf("assignment %q (id %d) due %s\n", created.Name, created.ID,
		due.In(s.Location()).Format("2006-01-02 15:04"))

	if mod := a.v.GetString("module"); mod != "" {
		if _, err := s.AddToModule(ctx, mod, canvas.NewModuleItem{
			Title:     created.Name,
			Type:      "Assignment",
			ContentID: created.ID,
		}); err != nil {
			return err
		}
		fmt.Printf("added to module %q\n", mod)
	}
	return nil
}

// uploadAndLink uploads the file into the course folder and returns an HTML
// fragment linking it, for use in assignment descriptions.
func uploadAndLink(ctx context.Context, s *course.Session, path, folder string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	uploaded, err := s.UploadTo(ctx, folder, filepath.Base(path), f, st.Size())
	if err != nil {
		return "", err
	}
	link := fmt.Sprintf(`<p><a class="instructure_file_link" href="%s">%s</a></p>`,
		s.FileLink(uploaded), filepath.Base(path))
	return link, nil
}
