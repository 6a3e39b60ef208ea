package docs

import (
	"strings"
	"testing"
)

func TestTopicsListEmbeddedPages(t *testing.T) {
	topics := Topics()
	if len(topics) == 0 {
		t.Fatalf("expected embedded topics")
	}
	seen := map[string]bool{}
	for _, topic := range topics {
		if topic.Name == "" {
			t.Fatalf("topic with empty name: %+v", topic)
		}
		if topic.Title == "" {
			t.Fatalf("topic %q has no heading", topic.Name)
		}
		seen[topic.Name] = true
	}
	for _, want := range []string{"outline", "config", "offline", "keys"} {
		if !seen[want] {
			t.Fatalf("expected topic %q, have %v", want, topics)
		}
	}
}

func TestGetNormalizesName(t *testing.T) {
	body, ok := Get("  Outline ")
	if !ok {
		t.Fatalf("expected outline topic")
	}
	if !strings.Contains(body, "# The outline") {
		t.Fatalf("unexpected body:\n%s", body)
	}
	if _, ok := Get("no-such-topic"); ok {
		t.Fatalf("expected miss for unknown topic")
	}
}
