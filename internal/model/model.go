package model

import "encoding/json"

type EntityType string

const (
	EntityCourse  EntityType = "course"
	EntityProject EntityType = "project"
	EntityLesson  EntityType = "lesson"
	EntityStep    EntityType = "step"
	EntityTask    EntityType = "task"
)

// Container reports whether entities of this type can hold children in the
// outline (and therefore carry expansion state).
func (t EntityType) Container() bool {
	return t == EntityProject || t == EntityLesson
}

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

type Course struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      CourseStatus `json:"status"`
}

type Project struct {
	ID          string `json:"id"`
	CourseID    string `json:"courseId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OrderIndex  int    `json:"orderIndex"`
	IsPublished bool   `json:"isPublished"`
	XPThreshold int    `json:"xpThreshold"`
}

type Lesson struct {
	ID            string   `json:"id"`
	ProjectID     string   `json:"projectId"`
	Title         string   `json:"title"`
	SequenceOrder int      `json:"sequenceOrder"`
	XPThreshold   int      `json:"xpThreshold"`
	IsDraft       bool     `json:"isDraft,omitempty"`
	LinkedTaskIDs []string `json:"linkedTaskIds,omitempty"`

	// Content is the ordered Step sequence embedded in the lesson record.
	// Steps are not addressable server-side; the whole sequence persists as
	// one blob.
	Content []Step `json:"content,omitempty"`
}

type StepType string

const (
	StepText  StepType = "text"
	StepVideo StepType = "video"
	StepFile  StepType = "file"
	StepQuiz  StepType = "quiz"
	StepEmbed StepType = "embed"
)

type Step struct {
	ID      string          `json:"id"`
	Type    StepType        `json:"type"`
	Order   int             `json:"order"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Pillar      string `json:"pillar,omitempty"`
	XPValue     int    `json:"xpValue"`
	IsRequired  bool   `json:"isRequired"`
}

func (s Step) Clone() Step {
	out := s
	if s.Payload != nil {
		out.Payload = append(json.RawMessage(nil), s.Payload...)
	}
	return out
}

func (l Lesson) Clone() Lesson {
	out := l
	if l.LinkedTaskIDs != nil {
		out.LinkedTaskIDs = append([]string(nil), l.LinkedTaskIDs...)
	}
	if l.Content != nil {
		out.Content = make([]Step, len(l.Content))
		for i, s := range l.Content {
			out.Content[i] = s.Clone()
		}
	}
	return out
}

func CloneProjects(in []Project) []Project {
	if in == nil {
		return nil
	}
	return append([]Project(nil), in...)
}

func CloneLessons(in []Lesson) []Lesson {
	if in == nil {
		return nil
	}
	out := make([]Lesson, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

func CloneTasks(in []Task) []Task {
	if in == nil {
		return nil
	}
	return append([]Task(nil), in...)
}

func CloneSteps(in []Step) []Step {
	if in == nil {
		return nil
	}
	out := make([]Step, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
