package cli

import (
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/mutate"

	"github.com/spf13/cobra"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsAddCmd(app))
	cmd.AddCommand(newProjectsRmCmd(app))
	cmd.AddCommand(newProjectsMvCmd(app))
	cmd.AddCommand(newProjectsSetCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the course's projects in order",
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
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Projects()})
		},
	}
	return cmd
}

func newProjectsAddCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project at the end of the course",
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
			p, err := s.co.CreateProject(title)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			projects := s.cache.Projects()
			created := projects[len(projects)-1]
			return writeOut(cmd, app, s.cfg, map[string]any{"data": created})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Project title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newProjectsRmCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <project-id>",
		Short: "Delete a project (and, server-side, its lessons)",
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

			if err := s.loadProjects(ctx); err != nil {
				return writeErr(cmd, err)
			}
			p, err := s.co.Delete(id, model.EntityProject)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": map[string]any{"deleted": id}})
		},
	}
	return cmd
}

func newProjectsMvCmd(app *App) *cobra.Command {
	var to int

	cmd := &cobra.Command{
		Use:   "mv <project-id>",
		Short: "Move a project to a new position (zero-based)",
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

			if err := s.loadProjects(ctx); err != nil {
				return writeErr(cmd, err)
			}
			src := indexOfID(s.cache.ProjectIDs(), id)
			if src < 0 {
				return writeErr(cmd, errNotFound("project", id))
			}
			p, err := s.co.Reorder(mutate.ReorderIntent{
				ParentType:  model.EntityCourse,
				SourceIndex: src,
				TargetIndex: to,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := run(ctx, p); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, s.cfg, map[string]any{"data": s.cache.Projects()})
		},
	}

	cmd.Flags().IntVar(&to, "to", 0, "Target position (zero-based)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newProjectsSetCmd(app *App) *cobra.Command {
	var (
		title       string
		description string
		xp          int
		published   bool
	)

	cmd := &cobra.Command{
		Use:   "set <project-id>",
		Short: "Update project fields",
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

			if err := s.loadProjects(ctx); err != nil {
				return writeErr(cmd, err)
			}
			if _, ok := s.cache.Project(id); !ok {
				return writeErr(cmd, errNotFound("project", id))
			}

			var pendings []*mutate.Pending
			if cmd.Flags().Changed("title") {
				p, err := s.co.Rename(id, model.EntityProject, title)
				if err != nil {
					return writeErr(cmd, err)
				}
				pendings = append(pendings, p)
			}
			if cmd.Flags().Changed("description") {
				p, err := s.co.SetDescription(id, description)
				if err != nil {
					return writeErr(cmd, err)
				}
				pendings = append(pendings, p)
			}
			if cmd.Flags().Changed("xp") {
				p, err := s.co.SetXPThreshold(id, model.EntityProject, xp)
				if err != nil {
					return writeErr(cmd, err)
				}
				pendings = append(pendings, p)
			}
			if cmd.Flags().Changed("published") {
				p, err := s.co.SetPublished(id, published)
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
			updated, _ := s.cache.Project(id)
			return writeOut(cmd, app, s.cfg, map[string]any{"data": updated})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().IntVar(&xp, "xp", 0, "XP threshold")
	cmd.Flags().BoolVar(&published, "published", false, "Published flag")
	return cmd
}

func indexOfID(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
