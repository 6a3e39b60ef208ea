package cli

import (
	"strings"
	"sync"
	"time"

	"chalk-cli/internal/api"
	"chalk-cli/internal/config"
	"chalk-cli/internal/logging"
	"chalk-cli/internal/model"
	"chalk-cli/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// pullParallel bounds concurrent per-project fetches during a pull.
const pullParallel = 4

func newPullCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch the whole course tree into the local snapshot store",
		Long: strings.TrimSpace(`
Fetch the course, its projects, every project's lessons and every lesson's
linked tasks, and store them locally. Listing commands run against the
snapshot with --offline.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(app.CfgFile)
			if err != nil {
				return writeErr(cmd, err)
			}
			courseID := resolveCourse(app, cfg)
			if courseID == "" {
				return writeErr(cmd, errNoCourse)
			}
			log, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer log.Sync()

			client, err := api.NewClient(log, api.Options{
				BaseURL:    cfg.Server.URL,
				Token:      cfg.Server.Token,
				Timeout:    cfg.Server.Timeout,
				MaxRetries: cfg.Server.MaxRetries,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			course, err := client.GetCourse(ctx, courseID)
			if err != nil {
				return writeErr(cmd, err)
			}
			projects, err := client.ListProjects(ctx, courseID)
			if err != nil {
				return writeErr(cmd, err)
			}

			snap := &store.CourseSnapshot{
				Course:   *course,
				Projects: projects,
				Lessons:  map[string][]model.Lesson{},
				Tasks:    map[string][]model.Task{},
				PulledAt: time.Now(),
			}

			// One goroutine per project: its lessons, then their tasks.
			var mu sync.Mutex
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(pullParallel)
			for _, p := range projects {
				g.Go(func() error {
					lessons, err := client.ListLessons(gctx, p.ID, true)
					if err != nil {
						return err
					}
					tasks := map[string][]model.Task{}
					for _, l := range lessons {
						ts, err := client.ListTasksForLesson(gctx, l.ID, p.ID)
						if err != nil {
							return err
						}
						tasks[l.ID] = ts
					}
					mu.Lock()
					snap.Lessons[p.ID] = lessons
					for lid, ts := range tasks {
						snap.Tasks[lid] = ts
					}
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return writeErr(cmd, err)
			}

			st := store.Store{Path: cfg.StatePath}
			if err := st.SaveSnapshot(ctx, snap); err != nil {
				return writeErr(cmd, err)
			}

			lessonN := 0
			for _, ls := range snap.Lessons {
				lessonN += len(ls)
			}
			return writeOut(cmd, app, cfg, map[string]any{"data": map[string]any{
				"course":   courseID,
				"projects": len(snap.Projects),
				"lessons":  lessonN,
				"pulledAt": snap.PulledAt.UTC().Format(time.RFC3339),
			}})
		},
	}
	return cmd
}
