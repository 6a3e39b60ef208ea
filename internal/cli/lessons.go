package cli

import (
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newLessonsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "Lesson commands",
	}
	cmd.AddCommand(newLessonsListCmd(app))
	cmd.AddCommand(newLessonsAddCmd(app))
	cmd.AddCommand(newLessonsRmCmd(app))
	cmd.AddCommand(newLessonsMvCmd(app))
	cmd.AddCommand(newLessonsSetCmd(app))
	cmd.AddCommand(newLessonsReorderCmd(app))
	return cmd
}

func newLessonsListCmd(app *App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's lessons in sequence order",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close()
			ctx := cmd.Context()

			if err := s.loadProjects(ctx); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.loadLessons(ctx, projectID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Lessons(projectID)})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newLessonsAddCmd(app *App) *cobra.Command {
	var projectID, title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a lesson at the end of a project",
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

			if err := s.loadProjects(ctx); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.loadLessons(ctx, projectID); err != nil {
				return writeErr(cmd, err)
			}
			p, err := s.co.CreateLesson(projectID, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			lessons := s.cache.Lessons(projectID)
			created := lessons[len(lessons)-1]
			return writeOut(cmd, app, s.cfg, map[string]any{"data": created})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id")
	cmd.Flags().StringVar(&title, "title", "", "Lesson title")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newLessonsRmCmd(app *App) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "rm <lesson-id>",
		Short: "Delete a lesson",
		Args:  cobra.ExactArgs(1),
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
			id := strings.TrimSpace(args[0])

			if _, err := s.locateLesson(ctx, id, projectID); err != nil {
				return writeErr(cmd, err)
			}
			p, err := s.co.Delete(id, model.EntityLesson)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": map[string]any{"deleted": id}})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	return cmd
}

func newLessonsMvCmd(app *App) *cobra.Command {
	var toProject string
	var at int

	cmd := &cobra.Command{
		Use:   "mv <lesson-id>",
		Short: "Move a lesson to another project",
		Args:  cobra.ExactArgs(1),
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
			id := strings.TrimSpace(args[0])

			if _, err := s.locateLesson(ctx, id, ""); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.loadLessons(ctx, toProject); err != nil {
				return writeErr(cmd, err)
			}
			p, err := s.co.MoveLesson(id, toProject, at)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Lessons(toProject)})
		},
	}

	cmd.Flags().StringVar(&toProject, "to", "", "Target project id")
	cmd.Flags().IntVar(&at, "at", -1, "Position in the target project (default: append)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newLessonsSetCmd(app *App) *cobra.Command {
	var (
		projectID string
		title     string
		xp        int
		draft     bool
	)

	cmd := &cobra.Command{
		Use:   "set <lesson-id>",
		Short: "Update lesson fields",
		Args:  cobra.ExactArgs(1),
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
			id := strings.TrimSpace(args[0])

			if _, err := s.locateLesson(ctx, id, projectID); err != nil {
				return writeErr(cmd, err)
			}

			var pendings []*mutate.Pending
			if cmd.Flags().Changed("title") {
				p, err := s.co.Rename(id, model.EntityLesson, title)
				if err != nil {
					return writeErr(cmd, err)
				}
				pendings = append(pendings, p)
			}
			if cmd.Flags().Changed("xp") {
				p, err := s.co.SetXPThreshold(id, model.EntityLesson, xp)
				if err != nil {
					return writeErr(cmd, err)
				}
				pendings = append(pendings, p)
			}
			if cmd.Flags().Changed("draft") {
				p, err := s.co.SetLessonDraft(id, draft)
				if err != nil {
					return writeErr(cmd, err)
				}
				pendings = append(pendings, p)
			}
			if len(pendings) == 0 {
				return writeErr(cmd, errNothingToSet)
			}
			for _, p := range pendings {
				if err := run(ctx, p); err != nil {
					return writeErr(cmd, err)
				}
			}
			updated, _ := s.cache.Lesson(id)
			return writeOut(cmd, app, s.cfg, map[string]any{"data": updated})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().IntVar(&xp, "xp", 0, "XP threshold")
	cmd.Flags().BoolVar(&draft, "draft", false, "Draft flag")
	return cmd
}

func newLessonsReorderCmd(app *App) *cobra.Command {
	var projectID string
	var to int

	cmd := &cobra.Command{
		Use:   "reorder <lesson-id>",
		Short: "Move a lesson to a new position within its project (zero-based)",
		Args:  cobra.ExactArgs(1),
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
			id := strings.TrimSpace(args[0])

			pid, err := s.locateLesson(ctx, id, projectID)
			if err != nil {
				return writeErr(cmd, err)
			}
			src := indexOfID(s.cache.LessonIDs(pid), id)
			p, err := s.co.Reorder(mutate.ReorderIntent{
				ParentID:    pid,
				ParentType:  model.EntityProject,
				SourceIndex: src,
				TargetIndex: to,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Lessons(pid)})
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	cmd.Flags().IntVar(&to, "to", 0, "Target position (zero-based)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
