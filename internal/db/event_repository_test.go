package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/veldt-labs/shortcycle/internal/models"
)

func TestEventRepository_AppendAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	payload, _ := json.Marshal(models.RoundReviewedPayload{Iteration: 1, Status: models.JudgmentRejected, Score: 40})
	event := &models.Event{
		Type:       models.EventTypeRoundReviewed,
		EntityType: models.EntityTypeRun,
		EntityID:   "run-1",
		Payload:    payload,
	}
	if err := repo.Append(ctx, event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if event.ID == "" {
		t.Fatal("expected generated event ID")
	}

	got, err := repo.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Type != models.EventTypeRoundReviewed || got.EntityID != "run-1" {
		t.Fatalf("unexpected event: %+v", got)
	}

	var decoded models.RoundReviewedPayload
	if err := json.Unmarshal(got.Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Score != 40 {
		t.Fatalf("payload score = %d", decoded.Score)
	}
}

func TestEventRepository_AppendValidation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)

	err := repo.Append(context.Background(), &models.Event{Type: models.EventTypeRunStarted})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestEventRepository_ListByEntityOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, eventType := range []models.EventType{
		models.EventTypeRunStarted,
		models.EventTypeRoundProposed,
		models.EventTypeRoundReviewed,
	} {
		event := &models.Event{
			Type:       eventType,
			EntityType: models.EntityTypeRun,
			EntityID:   "run-1",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Append(ctx, event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	// Unrelated entity must not leak into the listing.
	if err := repo.Append(ctx, &models.Event{
		Type: models.EventTypeError, EntityType: models.EntityTypeSystem, EntityID: "sys",
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := repo.ListByEntity(ctx, models.EntityTypeRun, "run-1", 0)
	if err != nil {
		t.Fatalf("ListByEntity failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != models.EventTypeRunStarted || events[2].Type != models.EventTypeRoundReviewed {
		t.Fatalf("unexpected ordering: %v, %v", events[0].Type, events[2].Type)
	}
}

func TestEventRepository_DeleteOlderThan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	for _, ts := range []time.Time{old, old.Add(time.Minute), recent} {
		if err := repo.Append(ctx, &models.Event{
			Type:       models.EventTypeWarning,
			EntityType: models.EntityTypeSystem,
			EntityID:   "sys",
			Timestamp:  ts,
		}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour), 0)
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 remaining event, got %d", count)
	}
}

func TestEventRepository_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
