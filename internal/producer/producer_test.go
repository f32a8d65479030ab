package producer

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/veldt-labs/shortcycle/internal/a2a"
	"github.com/veldt-labs/shortcycle/internal/models"

	"net/http/httptest"
)

func newRemote(t *testing.T, handler a2a.TaskHandler) *RemoteProducer {
	t.Helper()
	card := a2a.NewAgentCard("ProducerAgent", "renders clips", "http://localhost:0",
		a2a.AgentSkill{ID: a2a.SkillProduce, Name: "Video Production", Description: "renders video"})
	srv := httptest.NewServer(a2a.NewServer(card, handler).Router())
	t.Cleanup(srv.Close)
	return NewRemoteProducer(a2a.NewClient(srv.URL, 5*time.Second), "renders")
}

func TestRemoteProducerProduce(t *testing.T) {
	var gotInput map[string]any
	p := newRemote(t, func(ctx context.Context, task a2a.Task) (map[string]any, error) {
		gotInput = task.Input
		return map[string]any{
			"video_path":          "renders/final.mp4",
			"original_video_path": "renders/raw.mp4",
		}, nil
	})

	result, err := p.Produce(context.Background(), "the approved prompt", models.Constraints{DurationSeconds: 30})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.VideoPath != "renders/final.mp4" {
		t.Fatalf("video path = %q", result.VideoPath)
	}
	if result.SourcePath != "renders/raw.mp4" {
		t.Fatalf("source path = %q", result.SourcePath)
	}
	if gotInput["prompt"] != "the approved prompt" || gotInput["output_dir"] != "renders" {
		t.Fatalf("input = %v", gotInput)
	}
}

func TestRemoteProducerFailedStatus(t *testing.T) {
	p := newRemote(t, func(ctx context.Context, task a2a.Task) (map[string]any, error) {
		return nil, errors.New("render backend unavailable")
	})

	if _, err := p.Produce(context.Background(), "prompt", models.Constraints{}); err == nil {
		t.Fatal("expected error from failed task")
	}
}

func TestRemoteProducerMissingVideoPath(t *testing.T) {
	p := newRemote(t, func(ctx context.Context, task a2a.Task) (map[string]any, error) {
		return map[string]any{}, nil
	})

	if _, err := p.Produce(context.Background(), "prompt", models.Constraints{}); err == nil {
		t.Fatal("expected error when no video path returned")
	}
}

func TestCommandProducerRunsCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}

	dir := t.TempDir()
	cmd := `out="$SHORTCYCLE_OUTPUT_DIR/clip.mp4"; printf '%s' "$SHORTCYCLE_PROMPT" > "$out"; echo "$out"`
	p := NewCommandProducer(cmd, dir, time.Minute)

	result, err := p.Produce(context.Background(), "storyboard prompt", models.Constraints{DurationSeconds: 20})
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result.VideoPath != filepath.Join(dir, "clip.mp4") {
		t.Fatalf("video path = %q", result.VideoPath)
	}
}

func TestCommandProducerFailureSurfacesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}

	p := NewCommandProducer(`echo "render exploded" >&2; exit 3`, t.TempDir(), time.Minute)
	_, err := p.Produce(context.Background(), "prompt", models.Constraints{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "render exploded") {
		t.Fatalf("error should carry stderr, got %v", err)
	}
}

func TestCommandProducerEmptyCommand(t *testing.T) {
	p := NewCommandProducer("   ", t.TempDir(), time.Minute)
	if _, err := p.Produce(context.Background(), "prompt", models.Constraints{}); err == nil {
		t.Fatal("expected error on empty command")
	}
}

func TestCommandProducerMissingOutputFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires bash")
	}

	p := NewCommandProducer(`echo /nonexistent/clip.mp4`, t.TempDir(), time.Minute)
	if _, err := p.Produce(context.Background(), "prompt", models.Constraints{}); err == nil {
		t.Fatal("expected error when the reported file does not exist")
	}
}
