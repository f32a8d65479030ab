package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/veldt-labs/shortcycle/internal/models"
)

func TestProposeFirstRoundUsesTopic(t *testing.T) {
	llm := &fakeCompleter{completeOut: "**VIDEO SPECIFICATIONS:** ..."}
	planner := NewPlanner(llm, models.Constraints{DurationSeconds: 25})

	got, err := planner.Propose(context.Background(), "Rain", "Rain", "")
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if got != "**VIDEO SPECIFICATIONS:** ..." {
		t.Fatalf("candidate = %q", got)
	}
	if !strings.Contains(llm.lastUser, "User request: Rain") {
		t.Fatalf("first round prompt should carry the topic, got %q", llm.lastUser)
	}
	if strings.Contains(llm.lastUser, "rejected") {
		t.Fatal("first round prompt must not be a revision prompt")
	}
	if !strings.Contains(llm.lastSystem, "25 seconds") {
		t.Fatal("system prompt should carry the duration requirement")
	}
}

func TestProposeRevisionUsesRejectionContext(t *testing.T) {
	llm := &fakeCompleter{completeOut: "a new storyboard"}
	planner := NewPlanner(llm, models.Constraints{})

	rejection := "Previous storyboard was REJECTED by the reviewer.\n\nREJECTION REASON:\ntoo much motion"
	if _, err := planner.Propose(context.Background(), "Rain", rejection, "too much motion"); err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if !strings.Contains(llm.lastUser, "too much motion") {
		t.Fatalf("revision prompt should embed the rejection context, got %q", llm.lastUser)
	}
	if !strings.Contains(llm.lastUser, "NEW storyboard") {
		t.Fatal("revision prompt should demand a new storyboard")
	}
}

func TestProposeRejectsEmptyCandidate(t *testing.T) {
	llm := &fakeCompleter{completeOut: "   \n  "}
	planner := NewPlanner(llm, models.Constraints{})

	if _, err := planner.Propose(context.Background(), "Rain", "Rain", ""); err == nil {
		t.Fatal("expected error on blank storyboard")
	}
}

func TestProposeSurfacesLLMError(t *testing.T) {
	llm := &fakeCompleter{completeErr: errors.New("timeout")}
	planner := NewPlanner(llm, models.Constraints{})

	if _, err := planner.Propose(context.Background(), "Rain", "Rain", ""); err == nil {
		t.Fatal("expected error from backend failure")
	}
}

func TestEnrichParsesMetadata(t *testing.T) {
	llm := &fakeCompleter{jsonOut: "```json\n{\"title\": \"Gentle Rain\", \"description\": \"Calm rain sounds.\", \"tags\": [\"rain\", \"asmr\"]}\n```"}
	planner := NewPlanner(llm, models.Constraints{})

	meta, err := planner.Enrich(context.Background(), "Rain", "the approved storyboard")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if meta.Title != "Gentle Rain" {
		t.Fatalf("title = %q", meta.Title)
	}
	if len(meta.Tags) != 2 || meta.Tags[0] != "rain" {
		t.Fatalf("tags = %v", meta.Tags)
	}
	if !strings.Contains(llm.lastUser, "the approved storyboard") {
		t.Fatal("enrichment prompt should carry the storyboard")
	}
}

func TestEnrichReturnsErrorOnBadJSON(t *testing.T) {
	llm := &fakeCompleter{jsonOut: "not json at all {{{"}
	planner := NewPlanner(llm, models.Constraints{})

	if _, err := planner.Enrich(context.Background(), "Rain", "storyboard"); err == nil {
		t.Fatal("expected error so the caller can fall back")
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```JSON\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Fatalf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
