package cli

import (
	"strings"

	"chalk-cli/internal/model"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Linked-task commands (tasks themselves live in the catalog)",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksLinkCmd(app))
	cmd.AddCommand(newTasksUnlinkCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var lessonID, projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks linked to a lesson",
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
			if err := s.loadTasks(ctx, lessonID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Tasks(lessonID)})
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	_ = cmd.MarkFlagRequired("lesson")
	return cmd
}

func newTasksLinkCmd(app *App) *cobra.Command {
	var lessonID, projectID string

	cmd := &cobra.Command{
		Use:   "link <task-id>",
		Short: "Link a catalog task to a lesson",
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
			taskID := strings.TrimSpace(args[0])

			if _, err := s.locateLesson(ctx, lessonID, projectID); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.loadTasks(ctx, lessonID); err != nil {
				return writeErr(cmd, err)
			}
			// The catalog title arrives on the next task fetch; the id stands
			// in for it locally until then.
			p, err := s.co.LinkTask(lessonID, model.Task{ID: taskID, Title: taskID})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Tasks(lessonID)})
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	_ = cmd.MarkFlagRequired("lesson")
	return cmd
}

func newTasksUnlinkCmd(app *App) *cobra.Command {
	var lessonID, projectID string

	cmd := &cobra.Command{
		Use:   "unlink <task-id>",
		Short: "Remove a task link from a lesson (the task itself survives)",
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
			taskID := strings.TrimSpace(args[0])

			if _, err := s.locateLesson(ctx, lessonID, projectID); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.loadTasks(ctx, lessonID); err != nil {
				return writeErr(cmd, err)
			}
			p, err := s.co.UnlinkTask(lessonID, taskID)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Tasks(lessonID)})
		},
	}

	cmd.Flags().StringVar(&lessonID, "lesson", "", "Lesson id")
	cmd.Flags().StringVar(&projectID, "project", "", "Project id (skips the lookup across projects)")
	_ = cmd.MarkFlagRequired("lesson")
	return cmd
}
