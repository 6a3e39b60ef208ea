package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteJSONPretty(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]any{"id": "p1", "title": "Alpha"}, "json", true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "  \"id\": \"p1\"") {
		t.Fatalf("expected indented json, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline")
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, struct {
		Title string   `yaml:"title"`
		Tags  []string `yaml:"tags"`
	}{Title: "Alpha", Tags: []string{"go"}}, "yaml", false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "title: Alpha") || !strings.Contains(out, "- go") {
		t.Fatalf("unexpected yaml %q", out)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, 1, "toml", false); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
