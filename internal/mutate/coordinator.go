package mutate

import (
	"context"
	"errors"
	"fmt"

	"chalk-cli/internal/api"
	"chalk-cli/internal/logging"
	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
)

// Coordinator applies every outline mutation optimistically: validate,
// snapshot, apply to the local cache, then hand back a Pending whose remote
// half confirms or rolls back the change.
//
// The Coordinator and Result.Resolve are single-goroutine: they must run on
// the event loop that owns the cache and state. Only Pending.Run is safe to
// call elsewhere.
type Coordinator struct {
	cache    *outline.Cache
	state    *outline.State
	client   api.Client
	log      *logging.Logger
	courseID string

	includeDrafts bool
	inflight      map[outline.SliceKey]bool
}

type Config struct {
	Cache    *outline.Cache
	State    *outline.State
	Client   api.Client
	Log      *logging.Logger
	CourseID string

	// IncludeDrafts asks the server for unpublished lessons on every fetch.
	// The TUI always wants them; the CLI exposes a flag.
	IncludeDrafts bool
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.Cache == nil || cfg.State == nil {
		return nil, fmt.Errorf("cache and state required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("platform client required")
	}
	log := cfg.Log
	if log == nil {
		log = logging.Nop()
	}
	return &Coordinator{
		cache:         cfg.Cache,
		state:         cfg.State,
		client:        cfg.Client,
		log:           log,
		courseID:      cfg.CourseID,
		includeDrafts: cfg.IncludeDrafts,
		inflight:      map[outline.SliceKey]bool{},
	}, nil
}

func (c *Coordinator) Cache() *outline.Cache { return c.cache }
func (c *Coordinator) State() *outline.State { return c.state }

// fail rolls the mutation's slices back and shapes the user-visible error.
// restored=false means the slices advanced past the snapshots while the call
// was in flight; the rollback is rejected, the slices are marked for refetch,
// and callers must skip their selection/expansion repair because the state
// they captured no longer describes the cache.
func (c *Coordinator) fail(action string, cause error, snaps ...outline.Snapshot) (restored bool, err error) {
	if rerr := c.cache.RestoreAll(snaps...); rerr != nil {
		var stale *outline.StaleError
		if errors.As(rerr, &stale) {
			for _, s := range snaps {
				c.cache.Invalidate(s.Key)
			}
			c.log.Warn("rollback rejected, slice changed while saving",
				"action", action, "kind", string(stale.Key.Kind), "id", stale.Key.ID, "error", cause)
			return false, fmt.Errorf("%s failed: list changed while saving: %w", action, cause)
		}
		return false, fmt.Errorf("%s rollback: %v: %w", action, rerr, cause)
	}
	c.log.Warn("mutation rolled back", "action", action, "error", cause)
	return true, fmt.Errorf("%s failed: %w", action, cause)
}

// LoadCourse fetches the course header. Purely additive; no rollback needed.
func (c *Coordinator) LoadCourse() *Pending {
	courseID := c.courseID
	return &Pending{
		Action: "load course",
		run: func(ctx context.Context) Result {
			course, err := c.client.GetCourse(ctx, courseID)
			return Result{err: err, resolve: func() error {
				if err != nil {
					return fmt.Errorf("load course: %w", err)
				}
				c.cache.SetCourse(course)
				return nil
			}}
		},
	}
}

// LoadProjects fetches the course's project list. Deduplicated: an in-flight
// load suppresses a second one.
func (c *Coordinator) LoadProjects() *Pending {
	key := outline.ProjectsKey()
	if c.inflight[key] {
		return nil
	}
	c.inflight[key] = true
	courseID := c.courseID
	return &Pending{
		Action: "load projects",
		run: func(ctx context.Context) Result {
			projects, err := c.client.ListProjects(ctx, courseID)
			return Result{err: err, resolve: func() error {
				delete(c.inflight, key)
				if err != nil {
					return fmt.Errorf("load projects: %w", err)
				}
				c.cache.SetProjects(projects)
				return nil
			}}
		},
	}
}

// EnsureChildren triggers the lazy fetch for a container whose children have
// not been loaded. Idempotent: already-loaded and in-flight slices return
// nil.
func (c *Coordinator) EnsureChildren(id string, typ model.EntityType) *Pending {
	switch typ {
	case model.EntityProject:
		key := outline.LessonsKey(id)
		if c.cache.Loaded(key) || c.inflight[key] {
			return nil
		}
		c.inflight[key] = true
		projectID := id
		includeDrafts := c.includeDrafts
		return &Pending{
			Action: "load lessons",
			run: func(ctx context.Context) Result {
				lessons, err := c.client.ListLessons(ctx, projectID, includeDrafts)
				return Result{err: err, resolve: func() error {
					delete(c.inflight, key)
					if err != nil {
						return fmt.Errorf("load lessons: %w", err)
					}
					c.cache.SetLessonsForProject(projectID, lessons)
					return nil
				}}
			},
		}
	case model.EntityLesson:
		key := outline.TasksKey(id)
		if c.cache.Loaded(key) || c.inflight[key] {
			return nil
		}
		projectID, ok := c.cache.ProjectOfLesson(id)
		if !ok {
			return nil
		}
		c.inflight[key] = true
		lessonID := id
		return &Pending{
			Action: "load tasks",
			run: func(ctx context.Context) Result {
				tasks, err := c.client.ListTasksForLesson(ctx, lessonID, projectID)
				return Result{err: err, resolve: func() error {
					delete(c.inflight, key)
					if err != nil {
						return fmt.Errorf("load tasks: %w", err)
					}
					c.cache.SetTasksForLesson(lessonID, tasks)
					return nil
				}}
			},
		}
	}
	return nil
}

// ToggleExpand flips a container open or closed. Always succeeds locally;
// opening a container whose children were never fetched returns the lazy
// fetch as a Pending.
func (c *Coordinator) ToggleExpand(id string, typ model.EntityType) *Pending {
	if !typ.Container() {
		return nil
	}
	if c.state.IsExpanded(id) {
		c.state.Collapse(id)
		return nil
	}
	c.state.Expand(id)
	return c.EnsureChildren(id, typ)
}

// Refresh marks every loaded slice stale and reloads the project list. Child
// slices refetch lazily as their containers are expanded again.
func (c *Coordinator) Refresh() *Pending {
	c.cache.Invalidate(outline.ProjectsKey())
	for _, p := range c.cache.Projects() {
		c.cache.Invalidate(outline.LessonsKey(p.ID))
		for _, l := range c.cache.Lessons(p.ID) {
			c.cache.Invalidate(outline.TasksKey(l.ID))
		}
	}
	return c.LoadProjects()
}
