package cli

import (
	"fmt"
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"

	"github.com/spf13/cobra"
)

func newOutlineCmd(app *App) *cobra.Command {
	var filter string
	var withTasks bool

	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Print the course outline as an indented tree",
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
			if err := s.loadAllLessons(ctx); err != nil {
				return writeErr(cmd, err)
			}
			if withTasks {
				for _, p := range s.cache.Projects() {
					for _, l := range s.cache.Lessons(p.ID) {
						if err := s.loadTasks(ctx, l.ID); err != nil {
							return writeErr(cmd, err)
						}
					}
				}
			}

			// Everything expanded: the printed tree has no fold state.
			forced := map[string]bool{}
			for _, p := range s.cache.Projects() {
				forced[p.ID] = true
				for _, l := range s.cache.Lessons(p.ID) {
					forced[l.ID] = true
				}
			}

			view := outline.ApplyFilter(s.cache, filter)
			var tree outline.Tree = s.cache
			if view.Filtered() {
				tree = view
			}
			rows := outline.Flatten(tree, outline.WithForced(noExpansion{}, forced))

			out := cmd.OutOrStdout()
			if c := s.cache.Course(); c != nil && c.Title != "" {
				fmt.Fprintf(out, "%s [%s]\n", c.Title, c.Status)
			}
			for _, r := range rows {
				fmt.Fprintln(out, outlineLine(r))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only rows whose title matches (plus their ancestors)")
	cmd.Flags().BoolVar(&withTasks, "tasks", false, "Fetch and include linked tasks")
	return cmd
}

type noExpansion struct{}

func (noExpansion) IsExpanded(string) bool { return false }

func outlineLine(r outline.Row) string {
	indent := strings.Repeat("  ", r.Depth)
	switch r.Type {
	case model.EntityProject:
		return fmt.Sprintf("%s- %s  (%s)", indent, r.Title, r.ID)
	case model.EntityLesson:
		suffix := ""
		if r.Draft {
			suffix = " [draft]"
		}
		return fmt.Sprintf("%s- %s%s  (%s)", indent, r.Title, suffix, r.ID)
	case model.EntityTask:
		return fmt.Sprintf("%s~ %s  (%s)", indent, r.Title, r.ID)
	default: // step
		return fmt.Sprintf("%s* %s  (%s)", indent, r.Title, r.ID)
	}
}
