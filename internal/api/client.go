package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chalk-cli/internal/logging"
	"chalk-cli/internal/model"
)

// Client is the course-platform API as the outline engine needs it. The
// platform owns all content; chalk is a caching, optimistically-updating
// client of this contract.
type Client interface {
	GetCourse(ctx context.Context, courseID string) (*model.Course, error)
	ListProjects(ctx context.Context, courseID string) ([]model.Project, error)

	// ListLessons returns a project's lessons in sequence order.
	// includeDrafts asks the server for unpublished lessons too.
	ListLessons(ctx context.Context, projectID string, includeDrafts bool) ([]model.Lesson, error)
	ListTasksForLesson(ctx context.Context, lessonID, projectID string) ([]model.Task, error)

	// CreateChild creates a draft entity under the parent; the server
	// assigns the canonical id.
	CreateChild(ctx context.Context, parentID string, parentType model.EntityType, draft Draft) (*Created, error)
	UpdateEntity(ctx context.Context, id string, typ model.EntityType, patch Patch) error

	// DeleteEntity reports whether the server actually removed the entity
	// (and its subtree). Cascaded=false with a reason is a completed call,
	// not an error.
	DeleteEntity(ctx context.Context, id string, typ model.EntityType, opts DeleteOptions) (*DeleteResult, error)
	ReorderSiblings(ctx context.Context, parentID string, parentType model.EntityType, orderedIDs []string) error
	MoveLesson(ctx context.Context, lessonID, fromProjectID, toProjectID string) error

	// UpdateLessonContent replaces the lesson's whole step sequence. Steps
	// are not individually addressable server-side.
	UpdateLessonContent(ctx context.Context, lessonID string, steps []model.Step) error

	Ping(ctx context.Context) error
}

// Draft is the client-composed payload for CreateChild.
type Draft struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	OrderIndex    *int   `json:"orderIndex,omitempty"`
	SequenceOrder *int   `json:"sequenceOrder,omitempty"`
	XPThreshold   int    `json:"xpThreshold,omitempty"`
}

// Created carries the server-assigned identity of a new entity. Additional
// response fields are ignored; the engine reconciles by id only.
type Created struct {
	ID string `json:"id"`
}

type Patch map[string]any

type DeleteOptions struct {
	Cascade bool
}

type DeleteResult struct {
	Cascaded bool   `json:"cascaded"`
	Reason   string `json:"reason,omitempty"`
}

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

type client struct {
	log        *logging.Logger
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logging.Logger, opts Options) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing platform base URL")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:        log.With("service", "PlatformClient"),
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.Token),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("platform decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !isRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := retryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = jitterSleep(sleepFor)

		c.log.Warn("platform request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (c *client) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, fmt.Errorf("course id required")
	}
	var out model.Course
	if err := c.do(ctx, "GET", "/v1/courses/"+url.PathEscape(courseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ListProjects(ctx context.Context, courseID string) ([]model.Project, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, fmt.Errorf("course id required")
	}
	var out []model.Project
	if err := c.do(ctx, "GET", "/v1/courses/"+url.PathEscape(courseID)+"/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) ListLessons(ctx context.Context, projectID string, includeDrafts bool) ([]model.Lesson, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("project id required")
	}
	path := "/v1/projects/" + url.PathEscape(projectID) + "/lessons"
	if includeDrafts {
		path += "?includeDrafts=true"
	}
	var out []model.Lesson
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) ListTasksForLesson(ctx context.Context, lessonID, projectID string) ([]model.Task, error) {
	lessonID = strings.TrimSpace(lessonID)
	projectID = strings.TrimSpace(projectID)
	if lessonID == "" || projectID == "" {
		return nil, fmt.Errorf("lesson and project ids required")
	}
	path := "/v1/projects/" + url.PathEscape(projectID) + "/lessons/" + url.PathEscape(lessonID) + "/tasks"
	var out []model.Task
	if err := c.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) CreateChild(ctx context.Context, parentID string, parentType model.EntityType, draft Draft) (*Created, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, fmt.Errorf("parent id required")
	}
	var path string
	switch parentType {
	case model.EntityCourse:
		path = "/v1/courses/" + url.PathEscape(parentID) + "/projects"
	case model.EntityProject:
		path = "/v1/projects/" + url.PathEscape(parentID) + "/lessons"
	default:
		return nil, fmt.Errorf("cannot create children under %s", parentType)
	}
	var out Created
	if err := c.do(ctx, "POST", path, draft, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, fmt.Errorf("platform create: missing id in response")
	}
	return &out, nil
}

func (c *client) UpdateEntity(ctx context.Context, id string, typ model.EntityType, patch Patch) error {
	path, err := entityPath(id, typ)
	if err != nil {
		return err
	}
	if len(patch) == 0 {
		return nil
	}
	return c.do(ctx, "PATCH", path, patch, nil)
}

func (c *client) DeleteEntity(ctx context.Context, id string, typ model.EntityType, opts DeleteOptions) (*DeleteResult, error) {
	path, err := entityPath(id, typ)
	if err != nil {
		return nil, err
	}
	if opts.Cascade {
		path += "?cascade=true"
	}
	var out DeleteResult
	if err := c.do(ctx, "DELETE", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) ReorderSiblings(ctx context.Context, parentID string, parentType model.EntityType, orderedIDs []string) error {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return fmt.Errorf("parent id required")
	}
	var path string
	switch parentType {
	case model.EntityCourse:
		path = "/v1/courses/" + url.PathEscape(parentID) + "/projects/order"
	case model.EntityProject:
		path = "/v1/projects/" + url.PathEscape(parentID) + "/lessons/order"
	default:
		return fmt.Errorf("no sibling order endpoint for %s", parentType)
	}
	body := struct {
		OrderedIDs []string `json:"orderedIds"`
	}{OrderedIDs: orderedIDs}
	return c.do(ctx, "PUT", path, body, nil)
}

func (c *client) MoveLesson(ctx context.Context, lessonID, fromProjectID, toProjectID string) error {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return fmt.Errorf("lesson id required")
	}
	body := struct {
		FromProjectID string `json:"fromProjectId"`
		ToProjectID   string `json:"toProjectId"`
	}{FromProjectID: fromProjectID, ToProjectID: toProjectID}
	return c.do(ctx, "POST", "/v1/lessons/"+url.PathEscape(lessonID)+"/move", body, nil)
}

func (c *client) UpdateLessonContent(ctx context.Context, lessonID string, steps []model.Step) error {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return fmt.Errorf("lesson id required")
	}
	if steps == nil {
		steps = []model.Step{}
	}
	body := struct {
		Content []model.Step `json:"content"`
	}{Content: steps}
	return c.do(ctx, "PUT", "/v1/lessons/"+url.PathEscape(lessonID)+"/content", body, nil)
}

func (c *client) Ping(ctx context.Context) error {
	return c.do(ctx, "GET", "/v1/health", nil, nil)
}

func entityPath(id string, typ model.EntityType) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("entity id required")
	}
	switch typ {
	case model.EntityCourse:
		return "/v1/courses/" + url.PathEscape(id), nil
	case model.EntityProject:
		return "/v1/projects/" + url.PathEscape(id), nil
	case model.EntityLesson:
		return "/v1/lessons/" + url.PathEscape(id), nil
	default:
		return "", fmt.Errorf("no entity endpoint for %s", typ)
	}
}
