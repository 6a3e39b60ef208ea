package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chalk-cli/internal/api"
	"chalk-cli/internal/config"
	"chalk-cli/internal/logging"
	"chalk-cli/internal/model"
	"chalk-cli/internal/mutate"
	"chalk-cli/internal/outline"
	"chalk-cli/internal/store"

	"golang.org/x/sync/errgroup"
)

func newCoordinator(cfg config.Config, log *logging.Logger, courseID string, includeDrafts bool) (*mutate.Coordinator, error) {
	client, err := api.NewClient(log, api.Options{
		BaseURL:    cfg.Server.URL,
		Token:      cfg.Server.Token,
		Timeout:    cfg.Server.Timeout,
		MaxRetries: cfg.Server.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return mutate.New(mutate.Config{
		Cache:         outline.NewCache(),
		State:         outline.NewState(),
		Client:        client,
		Log:           log,
		CourseID:      courseID,
		IncludeDrafts: includeDrafts,
	})
}

// session is one CLI invocation's view of a course: config, logger, the
// outline engine, and the local store. Offline sessions have no coordinator;
// their cache is rebuilt from the last pulled snapshot.
type session struct {
	app      *App
	cfg      config.Config
	log      *logging.Logger
	courseID string

	co    *mutate.Coordinator
	cache *outline.Cache
	st    store.Store
}

func openSession(app *App) (*session, error) {
	cfg, err := config.Load(app.CfgFile)
	if err != nil {
		return nil, err
	}
	courseID := resolveCourse(app, cfg)
	if courseID == "" {
		return nil, errNoCourse
	}

	log, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	s := &session{
		app:      app,
		cfg:      cfg,
		log:      log,
		courseID: courseID,
		st:       store.Store{Path: cfg.StatePath},
	}

	if app.Offline {
		s.cache = outline.NewCache()
		if err := s.loadSnapshot(context.Background()); err != nil {
			return nil, err
		}
		return s, nil
	}

	co, err := newCoordinator(cfg, log, courseID, app.Drafts)
	if err != nil {
		return nil, err
	}
	s.co = co
	s.cache = co.Cache()
	return s, nil
}

func (s *session) close() {
	if s.log != nil {
		s.log.Sync()
	}
}

func (s *session) requireOnline() error {
	if s.co == nil {
		return errors.New("this command mutates the course and cannot run with --offline")
	}
	return nil
}

// run executes a pending mutation to completion: remote call, then the
// resolve that commits or rolls back. A nil pending is a completed local op.
func run(ctx context.Context, p *mutate.Pending) error {
	if p == nil {
		return nil
	}
	return p.Run(ctx).Resolve()
}

// loadSnapshot rebuilds the cache from the last pull.
func (s *session) loadSnapshot(ctx context.Context) error {
	snap, err := s.st.LoadSnapshot(ctx, s.courseID)
	if err != nil {
		if errors.Is(err, store.ErrNoSnapshot) {
			return fmt.Errorf("no local snapshot for course %s; run `chalk pull` first", s.courseID)
		}
		return err
	}
	course := snap.Course
	s.cache.SetCourse(&course)
	s.cache.SetProjects(snap.Projects)
	for pid, lessons := range snap.Lessons {
		s.cache.SetLessonsForProject(pid, lessons)
	}
	s.cache.SetTasksForLessons(snap.Tasks)
	return nil
}

func (s *session) loadProjects(ctx context.Context) error {
	if s.co == nil {
		return nil // snapshot already loaded
	}
	return run(ctx, s.co.LoadProjects())
}

func (s *session) loadLessons(ctx context.Context, projectID string) error {
	if s.co == nil {
		if _, ok := s.cache.Project(projectID); !ok {
			return errNotFound("project", projectID)
		}
		return nil
	}
	if _, ok := s.cache.Project(projectID); !ok {
		return errNotFound("project", projectID)
	}
	return run(ctx, s.co.EnsureChildren(projectID, model.EntityProject))
}

// loadAllLessons fetches every project's lesson list, a few in parallel.
func (s *session) loadAllLessons(ctx context.Context) error {
	if s.co == nil {
		return nil
	}
	var pendings []*mutate.Pending
	for _, p := range s.cache.Projects() {
		if pd := s.co.EnsureChildren(p.ID, model.EntityProject); pd != nil {
			pendings = append(pendings, pd)
		}
	}
	if len(pendings) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	results := make([]mutate.Result, len(pendings))
	for i, pd := range pendings {
		g.Go(func() error {
			results[i] = pd.Run(gctx)
			return nil
		})
	}
	_ = g.Wait()
	// Resolve sequentially; resolve closures touch the shared cache.
	var firstErr error
	for _, res := range results {
		if err := res.Resolve(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// locateLesson finds the project owning lessonID, fetching lesson lists as
// needed. projectHint skips the search when the caller already knows.
func (s *session) locateLesson(ctx context.Context, lessonID, projectHint string) (string, error) {
	if err := s.loadProjects(ctx); err != nil {
		return "", err
	}
	if hint := strings.TrimSpace(projectHint); hint != "" {
		if err := s.loadLessons(ctx, hint); err != nil {
			return "", err
		}
		for _, l := range s.cache.Lessons(hint) {
			if l.ID == lessonID {
				return hint, nil
			}
		}
		return "", errNotFound("lesson", lessonID)
	}
	if err := s.loadAllLessons(ctx); err != nil {
		return "", err
	}
	if pid, ok := s.cache.ProjectOfLesson(lessonID); ok {
		return pid, nil
	}
	return "", errNotFound("lesson", lessonID)
}

func (s *session) loadTasks(ctx context.Context, lessonID string) error {
	if s.co == nil {
		return nil
	}
	return run(ctx, s.co.EnsureChildren(lessonID, model.EntityLesson))
}
