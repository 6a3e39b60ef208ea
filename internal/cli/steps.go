package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/store"

	"github.com/spf13/cobra"
)

func newStepsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Step commands (a lesson's content blocks)",
	}
	cmd.AddCommand(newStepsListCmd(app))
	cmd.AddCommand(newStepsSetCmd(app))
	return cmd
}

func newStepsListCmd(app *App) *cobra.Command {
	var lessonID, projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a lesson's steps in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()
			ctx := cmd.Context()

			if _, err := s.locateLesson(ctx, lessonID, projectID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Steps(lessonID)})
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	_ = cmd.MarkFlagRequired("lesson")
	return cmd
}

func newStepsSetCmd(app *App) *cobra.Command {
	var lessonID, projectID, file string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace a lesson's whole step sequence from JSON",
		Long: strings.TrimSpace(`
Replace a lesson's whole step sequence. Steps persist as one content blob, so
this is the only write shape the server supports. Input is a JSON array of
steps read from --file (or stdin with --file -); steps without an id get a
locally generated one.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()
			if err := s.requireOnline(); err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			steps, err := readSteps(cmd, file)
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := s.locateLesson(ctx, lessonID, projectID); err != nil {
				return writeErr(cmd, err)
			}
			p, err := s.co.ReplaceSteps(lessonID, steps)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Steps(lessonID)})
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	cmd.Flags().StringVar(&file, "file", "-", "JSON file with the step array (- for stdin)")
	_ = cmd.MarkFlagRequired("lesson")
	return cmd
}

func readSteps(cmd *cobra.Command, file string) ([]model.Step, error) {
	var raw []byte
	var err error
	if file == "-" || file == "" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, err
	}

	var steps []model.Step
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("parse steps: %w", err)
	}
	for i := range steps {
		if strings.TrimSpace(steps[i].ID) == "" {
			id, err := store.NewStepID()
			if err != nil {
				return nil, err
			}
			steps[i].ID = id
		}
	}
	return steps, nil
}
