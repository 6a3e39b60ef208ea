package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"chalk-cli/internal/model"
)

// fakePlatform is an in-memory course platform backing the CLI under test.
// It implements just enough of the /v1 surface for the commands to run end
// to end.
type fakePlatform struct {
	t *testing.T

	mu       sync.Mutex
	course   model.Course
	projects []model.Project
	lessons  map[string][]model.Lesson
	tasks    map[string][]model.Task
	nextID   int
	calls    []string

	srv *httptest.Server
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{
		t: t,
		course: model.Course{
			ID:     "course-1",
			Title:  "Kitchen Fundamentals",
			Status: model.CoursePublished,
		},
		projects: []model.Project{
			{ID: "prj-a", CourseID: "course-1", Title: "Knife Skills", OrderIndex: 0, IsPublished: true},
			{ID: "prj-b", CourseID: "course-1", Title: "Sauces", OrderIndex: 1, XPThreshold: 100},
		},
		lessons: map[string][]model.Lesson{
			"prj-a": {
				{ID: "lsn-1", ProjectID: "prj-a", Title: "Grip", SequenceOrder: 1, LinkedTaskIDs: []string{"tsk-1"}},
				{ID: "lsn-2", ProjectID: "prj-a", Title: "Dicing", SequenceOrder: 2, IsDraft: true},
			},
			"prj-b": {
				{ID: "lsn-3", ProjectID: "prj-b", Title: "Roux", SequenceOrder: 1},
			},
		},
		tasks: map[string][]model.Task{
			"lsn-1": {{ID: "tsk-1", Title: "Sharpen a knife", XPValue: 10, IsRequired: true}},
		},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePlatform) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-srv%d", prefix, f.nextID)
}

func (f *fakePlatform) findLesson(id string) (string, int) {
	for pid, ls := range f.lessons {
		for i, l := range ls {
			if l.ID == id {
				return pid, i
			}
		}
	}
	return "", -1
}

func (f *fakePlatform) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	writeJSON := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	decode := func(v any) bool {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return false
		}
		return true
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// All paths start with v1.
	if len(parts) < 2 || parts[0] != "v1" {
		http.NotFound(w, r)
		return
	}
	parts = parts[1:]

	switch {
	case parts[0] == "health":
		writeJSON(map[string]any{"ok": true})

	case parts[0] == "courses" && len(parts) == 2 && r.Method == http.MethodGet:
		if parts[1] != f.course.ID {
			http.NotFound(w, r)
			return
		}
		writeJSON(f.course)

	case parts[0] == "courses" && len(parts) == 3 && parts[2] == "projects" && r.Method == http.MethodGet:
		writeJSON(f.projects)

	case parts[0] == "courses" && len(parts) == 3 && parts[2] == "projects" && r.Method == http.MethodPost:
		var draft struct {
			Title string `json:"title"`
		}
		if !decode(&draft) {
			return
		}
		id := f.newID("prj")
		f.projects = append(f.projects, model.Project{
			ID: id, CourseID: parts[1], Title: draft.Title, OrderIndex: len(f.projects),
		})
		writeJSON(map[string]string{"id": id})

	case parts[0] == "courses" && len(parts) == 4 && parts[3] == "order" && r.Method == http.MethodPut:
		var body struct {
			OrderedIDs []string `json:"orderedIds"`
		}
		if !decode(&body) {
			return
		}
		byID := map[string]model.Project{}
		for _, p := range f.projects {
			byID[p.ID] = p
		}
		var out []model.Project
		for i, id := range body.OrderedIDs {
			p := byID[id]
			p.OrderIndex = i
			out = append(out, p)
		}
		f.projects = out
		writeJSON(map[string]any{})

	case parts[0] == "projects" && len(parts) == 3 && parts[2] == "lessons" && r.Method == http.MethodGet:
		includeDrafts := r.URL.Query().Get("includeDrafts") == "true"
		var out []model.Lesson
		for _, l := range f.lessons[parts[1]] {
			if l.IsDraft && !includeDrafts {
				continue
			}
			out = append(out, l)
		}
		writeJSON(out)

	case parts[0] == "projects" && len(parts) == 3 && parts[2] == "lessons" && r.Method == http.MethodPost:
		var draft struct {
			Title string `json:"title"`
		}
		if !decode(&draft) {
			return
		}
		pid := parts[1]
		id := f.newID("lsn")
		f.lessons[pid] = append(f.lessons[pid], model.Lesson{
			ID: id, ProjectID: pid, Title: draft.Title,
			SequenceOrder: len(f.lessons[pid]) + 1, IsDraft: true,
		})
		writeJSON(map[string]string{"id": id})

	case parts[0] == "projects" && len(parts) == 4 && parts[3] == "order" && r.Method == http.MethodPut:
		writeJSON(map[string]any{})

	case parts[0] == "projects" && len(parts) == 5 && parts[2] == "lessons" && parts[4] == "tasks" && r.Method == http.MethodGet:
		writeJSON(f.tasks[parts[3]])

	case parts[0] == "projects" && len(parts) == 2 && r.Method == http.MethodPatch:
		var patch map[string]any
		if !decode(&patch) {
			return
		}
		for i := range f.projects {
			if f.projects[i].ID != parts[1] {
				continue
			}
			if v, ok := patch["title"].(string); ok {
				f.projects[i].Title = v
			}
			if v, ok := patch["isPublished"].(bool); ok {
				f.projects[i].IsPublished = v
			}
			if v, ok := patch["xpThreshold"].(float64); ok {
				f.projects[i].XPThreshold = int(v)
			}
		}
		writeJSON(map[string]any{})

	case parts[0] == "projects" && len(parts) == 2 && r.Method == http.MethodDelete:
		var out []model.Project
		for _, p := range f.projects {
			if p.ID != parts[1] {
				out = append(out, p)
			}
		}
		f.projects = out
		delete(f.lessons, parts[1])
		writeJSON(map[string]any{"cascaded": true})

	case parts[0] == "lessons" && len(parts) == 2 && r.Method == http.MethodPatch:
		var patch map[string]any
		if !decode(&patch) {
			return
		}
		pid, i := f.findLesson(parts[1])
		if i < 0 {
			http.NotFound(w, r)
			return
		}
		l := &f.lessons[pid][i]
		if v, ok := patch["title"].(string); ok {
			l.Title = v
		}
		if v, ok := patch["isDraft"].(bool); ok {
			l.IsDraft = v
		}
		if v, ok := patch["linkedTaskIds"].([]any); ok {
			l.LinkedTaskIDs = nil
			for _, id := range v {
				if s, ok := id.(string); ok {
					l.LinkedTaskIDs = append(l.LinkedTaskIDs, s)
				}
			}
		}
		writeJSON(map[string]any{})

	case parts[0] == "lessons" && len(parts) == 2 && r.Method == http.MethodDelete:
		pid, i := f.findLesson(parts[1])
		if i >= 0 {
			f.lessons[pid] = append(f.lessons[pid][:i], f.lessons[pid][i+1:]...)
		}
		writeJSON(map[string]any{"cascaded": true})

	case parts[0] == "lessons" && len(parts) == 3 && parts[2] == "move" && r.Method == http.MethodPost:
		var body struct {
			FromProjectID string `json:"fromProjectId"`
			ToProjectID   string `json:"toProjectId"`
		}
		if !decode(&body) {
			return
		}
		pid, i := f.findLesson(parts[1])
		if pid != body.FromProjectID || i < 0 {
			http.Error(w, "lesson not in fromProject", http.StatusConflict)
			return
		}
		l := f.lessons[pid][i]
		f.lessons[pid] = append(f.lessons[pid][:i], f.lessons[pid][i+1:]...)
		l.ProjectID = body.ToProjectID
		f.lessons[body.ToProjectID] = append(f.lessons[body.ToProjectID], l)
		writeJSON(map[string]any{})

	case parts[0] == "lessons" && len(parts) == 3 && parts[2] == "content" && r.Method == http.MethodPut:
		var body struct {
			Content []model.Step `json:"content"`
		}
		if !decode(&body) {
			return
		}
		pid, i := f.findLesson(parts[1])
		if i < 0 {
			http.NotFound(w, r)
			return
		}
		f.lessons[pid][i].Content = body.Content
		writeJSON(map[string]any{})

	default:
		http.NotFound(w, r)
	}
}

// env wires the CLI to the fake server and keeps config + state inside the
// test's temp dirs.
func (f *fakePlatform) env(t *testing.T) {
	t.Helper()
	t.Setenv("CHALK_SERVER_URL", f.srv.URL)
	t.Setenv("CHALK_COURSE", f.course.ID)
	t.Setenv("CHALK_CONFIG_DIR", t.TempDir())
	t.Setenv("CHALK_STATE_DIR", t.TempDir())
}

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func mustRunCLI(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: chalk %v\nerr: %v\nstderr:\n%s\nstdout:\n%s", args, err, string(stderr), string(stdout))
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout as json envelope: %v\nstdout:\n%s\nargs: %v", err, string(stdout), args)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected JSON envelope with data key; got: %v", env)
	}
	return env
}

func dataList(t *testing.T, env map[string]any) []any {
	t.Helper()
	xs, ok := env["data"].([]any)
	if !ok {
		t.Fatalf("expected data to be a list; got: %#v", env["data"])
	}
	return xs
}

func TestProjectsListAndAdd(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	list := mustRunCLI(t, "projects", "list")
	xs := dataList(t, list)
	if len(xs) != 2 {
		t.Fatalf("expected 2 projects, got %d: %#v", len(xs), xs)
	}
	first, _ := xs[0].(map[string]any)
	if got := first["title"]; got != "Knife Skills" {
		t.Fatalf("expected Knife Skills first, got %v", got)
	}

	added := mustRunCLI(t, "projects", "add", "--title", "Plating")
	data, _ := added["data"].(map[string]any)
	id, _ := data["id"].(string)
	if id == "" || strings.HasPrefix(id, "draft-") {
		t.Fatalf("expected server-assigned project id after add, got %q", id)
	}
	if got := data["orderIndex"]; got != float64(2) {
		t.Fatalf("expected new project at orderIndex 2, got %v", got)
	}
}

func TestProjectsSet(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	env := mustRunCLI(t, "projects", "set", "prj-b", "--title", "Mother Sauces", "--published")
	data, _ := env["data"].(map[string]any)
	if got := data["title"]; got != "Mother Sauces" {
		t.Fatalf("expected renamed project in output, got %v", got)
	}
	if got := data["isPublished"]; got != true {
		t.Fatalf("expected published project, got %v", got)
	}

	// The server must have seen both patches.
	f.mu.Lock()
	patches := 0
	for _, c := range f.calls {
		if c == "PATCH /v1/projects/prj-b" {
			patches++
		}
	}
	f.mu.Unlock()
	if patches != 2 {
		t.Fatalf("expected 2 PATCH calls, got %d (%v)", patches, f.calls)
	}

	// No changed flags => error, nothing sent.
	if _, _, err := runCLI(t, []string{"projects", "set", "prj-b"}); err == nil {
		t.Fatalf("expected error when no fields given")
	}
}

func TestProjectsMvReordersDense(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	env := mustRunCLI(t, "projects", "mv", "prj-b", "--to", "0")
	xs := dataList(t, env)
	if len(xs) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(xs))
	}
	first, _ := xs[0].(map[string]any)
	second, _ := xs[1].(map[string]any)
	if first["id"] != "prj-b" || second["id"] != "prj-a" {
		t.Fatalf("expected prj-b before prj-a, got %v then %v", first["id"], second["id"])
	}
	if first["orderIndex"] != float64(0) || second["orderIndex"] != float64(1) {
		t.Fatalf("expected dense order indexes, got %v / %v", first["orderIndex"], second["orderIndex"])
	}
}

func TestLessonsListHidesDraftsByDefault(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	env := mustRunCLI(t, "lessons", "list", "--project", "prj-a")
	xs := dataList(t, env)
	if len(xs) != 1 {
		t.Fatalf("expected 1 published lesson, got %d: %#v", len(xs), xs)
	}

	env = mustRunCLI(t, "--drafts", "lessons", "list", "--project", "prj-a")
	xs = dataList(t, env)
	if len(xs) != 2 {
		t.Fatalf("expected 2 lessons with --drafts, got %d", len(xs))
	}
}

func TestLessonsMvRenumbersBothProjects(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	env := mustRunCLI(t, "--drafts", "lessons", "mv", "lsn-1", "--to", "prj-b", "--at", "0")
	xs := dataList(t, env)
	if len(xs) != 2 {
		t.Fatalf("expected 2 lessons in target project, got %d: %#v", len(xs), xs)
	}
	first, _ := xs[0].(map[string]any)
	if first["id"] != "lsn-1" {
		t.Fatalf("expected moved lesson first, got %v", first["id"])
	}
	// Sequence orders are 1-based and dense after the move.
	for i, x := range xs {
		l, _ := x.(map[string]any)
		if got := l["sequenceOrder"]; got != float64(i+1) {
			t.Fatalf("lesson %d: expected sequenceOrder %d, got %v", i, i+1, got)
		}
	}

	f.mu.Lock()
	moved := false
	for _, c := range f.calls {
		if c == "POST /v1/lessons/lsn-1/move" {
			moved = true
		}
	}
	f.mu.Unlock()
	if !moved {
		t.Fatalf("expected move call on the server; calls: %v", f.calls)
	}
}

func TestTasksLinkAndUnlink(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	env := mustRunCLI(t, "tasks", "link", "tsk-9", "--lesson", "lsn-1", "--project", "prj-a")
	xs := dataList(t, env)
	if len(xs) != 2 {
		t.Fatalf("expected 2 linked tasks after link, got %d: %#v", len(xs), xs)
	}

	env = mustRunCLI(t, "tasks", "unlink", "tsk-1", "--lesson", "lsn-1", "--project", "prj-a")
	xs = dataList(t, env)
	if len(xs) != 1 {
		t.Fatalf("expected 1 linked task after unlink, got %d: %#v", len(xs), xs)
	}
	only, _ := xs[0].(map[string]any)
	if only["id"] != "tsk-9" {
		t.Fatalf("expected tsk-9 to survive the unlink, got %v", only["id"])
	}
}

func TestStepsSetFromStdin(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	cmd := NewRootCmd()
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(`[
		{"type":"video","payload":{"url":"https://example.com/v1"}},
		{"id":"step-keep","type":"text","payload":{"text":"hello"}}
	]`))
	cmd.SetArgs([]string{"steps", "set", "--lesson", "lsn-3", "--project", "prj-b"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("steps set: %v\nstderr:\n%s", err, errBuf.String())
	}

	var env map[string]any
	if err := json.Unmarshal(outBuf.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal output: %v\nstdout:\n%s", err, outBuf.String())
	}
	xs := dataList(t, env)
	if len(xs) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(xs))
	}
	first, _ := xs[0].(map[string]any)
	if id, _ := first["id"].(string); !strings.HasPrefix(id, "step-") {
		t.Fatalf("expected generated step id, got %v", first["id"])
	}
	second, _ := xs[1].(map[string]any)
	if second["id"] != "step-keep" {
		t.Fatalf("expected given id to survive, got %v", second["id"])
	}

	f.mu.Lock()
	got := f.lessons["prj-b"][0].Content
	f.mu.Unlock()
	if len(got) != 2 || got[1].ID != "step-keep" {
		t.Fatalf("expected content persisted on the server, got %#v", got)
	}
}

func TestPullThenOfflineOutline(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	mustRunCLI(t, "pull")

	// Offline reads never touch the server.
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()

	stdout, stderr, err := runCLI(t, []string{"--offline", "outline"})
	if err != nil {
		t.Fatalf("offline outline: %v\nstderr:\n%s", err, stderr)
	}
	out := string(stdout)
	for _, want := range []string{"Kitchen Fundamentals", "Knife Skills", "Roux", "Dicing [draft]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("outline missing %q:\n%s", want, out)
		}
	}

	f.mu.Lock()
	calls := len(f.calls)
	f.mu.Unlock()
	if calls != 0 {
		t.Fatalf("offline outline hit the server: %v", f.calls)
	}
}

func TestOfflineRefusesMutations(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	mustRunCLI(t, "pull")

	_, stderr, err := runCLI(t, []string{"--offline", "projects", "add", "--title", "Nope"})
	if err == nil {
		t.Fatalf("expected offline mutation to fail")
	}
	if !strings.Contains(string(stderr), "--offline") {
		t.Fatalf("expected offline explanation, got: %s", stderr)
	}
}

func TestMissingCourse(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)
	t.Setenv("CHALK_COURSE", "")

	_, _, err := runCLI(t, []string{"projects", "list"})
	if err == nil {
		t.Fatalf("expected error without a course id")
	}
}

func TestDocsTopics(t *testing.T) {
	f := newFakePlatform(t)
	f.env(t)

	env := mustRunCLI(t, "docs")
	data, _ := env["data"].(map[string]any)
	topics, _ := data["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected at least one docs topic; got %#v", env["data"])
	}

	stdout, _, err := runCLI(t, []string{"docs", "outline", "--raw"})
	if err != nil {
		t.Fatalf("docs outline --raw: %v", err)
	}
	if !strings.Contains(string(stdout), "# The outline") {
		t.Fatalf("expected raw markdown body, got:\n%s", stdout)
	}
}
