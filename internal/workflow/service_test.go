package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/veldt-labs/shortcycle/internal/db"
	"github.com/veldt-labs/shortcycle/internal/events"
	"github.com/veldt-labs/shortcycle/internal/loop"
	"github.com/veldt-labs/shortcycle/internal/metadata"
	"github.com/veldt-labs/shortcycle/internal/models"
	"github.com/veldt-labs/shortcycle/internal/producer"
	"github.com/veldt-labs/shortcycle/internal/uploader"
)

// scripted collaborators for pipeline tests.

type stubProposer struct {
	calls int
	err   error
}

func (p *stubProposer) Propose(_ context.Context, topic, input, _ string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("storyboard %d for %s", p.calls, topic), nil
}

type scriptReviewer struct {
	verdicts []models.Judgment
	calls    int
}

func (r *scriptReviewer) Review(_ context.Context, _ string, _ models.Constraints) (models.Judgment, error) {
	verdict := r.verdicts[r.calls]
	r.calls++
	return verdict, nil
}

type stubEnricher struct {
	meta models.Metadata
	err  error
}

func (e *stubEnricher) Enrich(_ context.Context, _, _ string) (models.Metadata, error) {
	return e.meta, e.err
}

type stubProducer struct {
	path string
	err  error
}

func (p *stubProducer) Produce(_ context.Context, _ string, _ models.Constraints) (producer.RenderResult, error) {
	if p.err != nil {
		return producer.RenderResult{}, p.err
	}
	return producer.RenderResult{VideoPath: p.path}, nil
}

type stubUploader struct {
	url     string
	err     error
	gotMeta models.Metadata
}

func (u *stubUploader) Upload(_ context.Context, _ string, meta models.Metadata, _ string) (uploader.UploadResult, error) {
	u.gotMeta = meta
	if u.err != nil {
		return uploader.UploadResult{}, u.err
	}
	return uploader.UploadResult{WatchURL: u.url}, nil
}

func approvedAfter(n int) []models.Judgment {
	var verdicts []models.Judgment
	for i := 1; i < n; i++ {
		verdicts = append(verdicts, models.Judgment{Status: models.JudgmentRejected, Score: 40, Feedback: "needs work"})
	}
	return append(verdicts, models.Judgment{Status: models.JudgmentApproved, Score: 85, Feedback: "good"})
}

func newTestService(t *testing.T, p Params) (*Service, *db.RunRepository, *events.InMemoryPublisher) {
	t.Helper()

	database, err := db.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	runs := db.NewRunRepository(database)
	publisher := events.NewInMemoryPublisher(events.WithRepository(db.NewEventRepository(database)))

	p.Runs = runs
	p.Publisher = publisher
	svc, err := NewService(p)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, runs, publisher
}

func collectEventTypes(t *testing.T, publisher *events.InMemoryPublisher) *[]models.EventType {
	t.Helper()
	var seen []models.EventType
	if err := publisher.Subscribe("test", events.Filter{}, func(e *models.Event) {
		seen = append(seen, e.Type)
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	return &seen
}

func TestRunPipelineApprovedPersistsEverything(t *testing.T) {
	proposer := &stubProposer{}
	reviewer := &scriptReviewer{verdicts: approvedAfter(3)}
	enricher := &stubEnricher{meta: models.Metadata{Title: "Gentle Rain", Description: "d", Tags: []string{"rain"}}}

	svc, runs, publisher := newTestService(t, Params{
		Proposer:    proposer,
		Reviewer:    reviewer,
		Enricher:    enricher,
		MaxAttempts: 5,
	})
	seen := collectEventTypes(t, publisher)

	run, err := svc.RunPipeline(context.Background(), "Rain")
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	if run.Status != models.RunStatusApproved {
		t.Fatalf("status = %q", run.Status)
	}
	if run.Attempts != 3 || run.FinalScore != 85 {
		t.Fatalf("run = %+v", run)
	}
	if run.Metadata == nil || run.Metadata.Title != "Gentle Rain" {
		t.Fatalf("metadata = %+v", run.Metadata)
	}

	stored, err := runs.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != models.RunStatusApproved || stored.ApprovedPrompt == "" {
		t.Fatalf("stored run = %+v", stored)
	}

	rounds, err := runs.Rounds(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Rounds: %v", err)
	}
	if len(rounds) != 3 {
		t.Fatalf("expected 3 persisted rounds, got %d", len(rounds))
	}
	if rounds[2].Judgment.Status != models.JudgmentApproved {
		t.Fatalf("final round = %+v", rounds[2])
	}

	wantOrder := []models.EventType{
		models.EventTypeRunStarted,
		models.EventTypeRoundProposed,
		models.EventTypeRoundReviewed,
		models.EventTypeRoundProposed,
		models.EventTypeRoundReviewed,
		models.EventTypeRoundProposed,
		models.EventTypeRoundReviewed,
		models.EventTypeMetadataEnriched,
		models.EventTypeRunApproved,
	}
	if len(*seen) != len(wantOrder) {
		t.Fatalf("events = %v, want %v", *seen, wantOrder)
	}
	for i, want := range wantOrder {
		if (*seen)[i] != want {
			t.Fatalf("event[%d] = %v, want %v", i, (*seen)[i], want)
		}
	}
}

func TestRunPipelineExhaustedRecordsHistory(t *testing.T) {
	reviewer := &scriptReviewer{verdicts: []models.Judgment{
		{Status: models.JudgmentRejected, Score: 30, Feedback: "bad"},
		{Status: models.JudgmentRejected, Score: 35, Feedback: "still bad"},
	}}

	svc, runs, publisher := newTestService(t, Params{
		Proposer:    &stubProposer{},
		Reviewer:    reviewer,
		MaxAttempts: 2,
	})
	seen := collectEventTypes(t, publisher)

	run, err := svc.RunPipeline(context.Background(), "Ocean")
	var exhausted *loop.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if run.Status != models.RunStatusExhausted || run.Attempts != 2 {
		t.Fatalf("run = %+v", run)
	}

	rounds, err := runs.Rounds(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Rounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("expected 2 persisted rounds, got %d", len(rounds))
	}

	last := (*seen)[len(*seen)-1]
	if last != models.EventTypeRunExhausted {
		t.Fatalf("last event = %v, want run.exhausted", last)
	}
}

func TestRunPipelineCollaboratorFailure(t *testing.T) {
	svc, runs, _ := newTestService(t, Params{
		Proposer:    &stubProposer{err: errors.New("planner down")},
		Reviewer:    &scriptReviewer{verdicts: approvedAfter(1)},
		MaxAttempts: 3,
	})

	run, err := svc.RunPipeline(context.Background(), "Rain")
	var collab *loop.CollaboratorError
	if !errors.As(err, &collab) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if collab.Role != loop.RoleProposer || collab.Round != 1 {
		t.Fatalf("collab = %+v", collab)
	}
	if run.Status != models.RunStatusFailed {
		t.Fatalf("status = %q", run.Status)
	}

	stored, err := runs.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != models.RunStatusFailed || stored.Error == "" {
		t.Fatalf("stored run = %+v", stored)
	}
}

func TestRunPipelineEnrichmentFailureFallsBack(t *testing.T) {
	svc, _, publisher := newTestService(t, Params{
		Proposer:    &stubProposer{},
		Reviewer:    &scriptReviewer{verdicts: approvedAfter(1)},
		Enricher:    &stubEnricher{err: errors.New("llm unavailable")},
		MaxAttempts: 3,
	})
	seen := collectEventTypes(t, publisher)

	run, err := svc.RunPipeline(context.Background(), "Rain")
	if err != nil {
		t.Fatalf("enrichment failure must not fail the run: %v", err)
	}
	if run.Metadata == nil {
		t.Fatal("expected fallback metadata")
	}
	if run.Metadata.Title != metadata.Fallback("Rain").Title {
		t.Fatalf("metadata = %+v", run.Metadata)
	}

	foundDefault := false
	for _, eventType := range *seen {
		if eventType == models.EventTypeMetadataDefault {
			foundDefault = true
		}
		if eventType == models.EventTypeMetadataEnriched {
			t.Fatal("fallback run must not publish metadata.enriched")
		}
	}
	if !foundDefault {
		t.Fatal("expected metadata.default event")
	}
}

func TestRunPipelineRendersAndUploads(t *testing.T) {
	dir := t.TempDir()
	videoPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	up := &stubUploader{url: "https://youtube.com/watch?v=abc"}
	svc, runs, _ := newTestService(t, Params{
		Proposer:    &stubProposer{},
		Reviewer:    &scriptReviewer{verdicts: approvedAfter(1)},
		Producer:    &stubProducer{path: videoPath},
		Uploader:    up,
		MaxAttempts: 3,
	})

	run, err := svc.RunPipeline(context.Background(), "Rain")
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	if run.VideoPath != videoPath {
		t.Fatalf("video path = %q", run.VideoPath)
	}
	if run.WatchURL != "https://youtube.com/watch?v=abc" {
		t.Fatalf("watch url = %q", run.WatchURL)
	}
	// The uploader receives the run's metadata, fallback included.
	if up.gotMeta.Empty() {
		t.Fatal("uploader should receive metadata")
	}

	stored, err := runs.Get(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.WatchURL != run.WatchURL || stored.VideoPath != run.VideoPath {
		t.Fatalf("stored run = %+v", stored)
	}
}

func TestRunPipelineRenderFailureFailsRun(t *testing.T) {
	svc, _, _ := newTestService(t, Params{
		Proposer:    &stubProposer{},
		Reviewer:    &scriptReviewer{verdicts: approvedAfter(1)},
		Producer:    &stubProducer{err: errors.New("ffmpeg exploded")},
		MaxAttempts: 3,
	})

	run, err := svc.RunPipeline(context.Background(), "Rain")
	if err == nil {
		t.Fatal("expected render failure to surface")
	}
	if run.Status != models.RunStatusFailed {
		t.Fatalf("status = %q", run.Status)
	}
}

func TestRunBatchReportsPerTopicResults(t *testing.T) {
	reviewer := &scriptReviewer{verdicts: append(approvedAfter(1), approvedAfter(1)...)}
	svc, _, _ := newTestService(t, Params{
		Proposer:    &stubProposer{},
		Reviewer:    reviewer,
		MaxAttempts: 1,
	})

	results := svc.RunBatch(context.Background(), []string{"Rain", "Ocean"}, 1)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Topic != "Rain" || results[1].Topic != "Ocean" {
		t.Fatalf("results out of order: %+v", results)
	}
	for _, result := range results {
		if result.Err != nil {
			t.Fatalf("topic %s: %v", result.Topic, result.Err)
		}
		if result.Run == nil || result.Run.Status != models.RunStatusApproved {
			t.Fatalf("topic %s run = %+v", result.Topic, result.Run)
		}
	}
}
