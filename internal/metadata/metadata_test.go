package metadata

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/models"
)

type enrichFunc func(ctx context.Context, topic, storyboard string) (models.Metadata, error)

func (f enrichFunc) Enrich(ctx context.Context, topic, storyboard string) (models.Metadata, error) {
	return f(ctx, topic, storyboard)
}

func TestFallbackIsIdempotent(t *testing.T) {
	a := Fallback("Rain")
	b := Fallback("Rain")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("fallback not idempotent:\n%+v\n%+v", a, b)
	}
	if a.Title != "Healing Rain - Relaxing ASMR Video" {
		t.Fatalf("title = %q", a.Title)
	}
}

func TestFallbackUnionsTopicTag(t *testing.T) {
	meta := Fallback("Ocean")
	want := []string{"healing", "asmr", "meditation", "relaxation", "ocean"}
	if !reflect.DeepEqual(meta.Tags, want) {
		t.Fatalf("tags = %v, want %v", meta.Tags, want)
	}

	// A topic already in the base set is not duplicated.
	meta = Fallback("Meditation")
	want = []string{"healing", "asmr", "meditation", "relaxation"}
	if !reflect.DeepEqual(meta.Tags, want) {
		t.Fatalf("tags = %v, want %v", meta.Tags, want)
	}
}

func TestEnrichOrFallbackRecoversFailure(t *testing.T) {
	enricher := enrichFunc(func(context.Context, string, string) (models.Metadata, error) {
		return models.Metadata{}, errors.New("llm unavailable")
	})

	meta, enriched := EnrichOrFallback(context.Background(), enricher, "Rain", "storyboard")
	if enriched {
		t.Fatal("failed enrichment must not report as enriched")
	}
	if meta.Empty() {
		t.Fatal("expected fallback metadata, got empty")
	}
	if !reflect.DeepEqual(meta, Fallback("Rain")) {
		t.Fatalf("expected fallback metadata, got %+v", meta)
	}
}

func TestEnrichOrFallbackWarnsViaContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.WithContext(context.Background(), zerolog.New(&buf))

	enricher := enrichFunc(func(context.Context, string, string) (models.Metadata, error) {
		return models.Metadata{}, errors.New("llm unavailable")
	})

	meta, enriched := EnrichOrFallback(ctx, enricher, "Rain", "storyboard")
	if enriched {
		t.Fatal("failed enrichment must not report as enriched")
	}
	if !reflect.DeepEqual(meta, Fallback("Rain")) {
		t.Fatalf("expected fallback metadata, got %+v", meta)
	}
	if !strings.Contains(buf.String(), "metadata enrichment failed") {
		t.Fatalf("expected a warning on the context logger, got %q", buf.String())
	}
}

func TestEnrichOrFallbackPrefersEnrichment(t *testing.T) {
	enriched := models.Metadata{
		Title:       "Gentle Rain on a Tin Roof",
		Description: "A calming rain soundscape.",
		Tags:        []string{"rain", "sleep"},
	}
	enricher := enrichFunc(func(context.Context, string, string) (models.Metadata, error) {
		return enriched, nil
	})

	meta, fromEnricher := EnrichOrFallback(context.Background(), enricher, "Rain", "storyboard")
	if !fromEnricher {
		t.Fatal("expected enrichment to be reported")
	}
	if !reflect.DeepEqual(meta, enriched) {
		t.Fatalf("expected enriched metadata, got %+v", meta)
	}
}

func TestEnrichOrFallbackEmptyResultFallsBack(t *testing.T) {
	enricher := enrichFunc(func(context.Context, string, string) (models.Metadata, error) {
		return models.Metadata{}, nil
	})

	meta, fromEnricher := EnrichOrFallback(context.Background(), enricher, "Rain", "storyboard")
	if fromEnricher {
		t.Fatal("empty enrichment must not report as enriched")
	}
	if !reflect.DeepEqual(meta, Fallback("Rain")) {
		t.Fatalf("expected fallback metadata, got %+v", meta)
	}
}

func TestEnrichOrFallbackNilEnricher(t *testing.T) {
	meta, fromEnricher := EnrichOrFallback(context.Background(), nil, "Rain", "storyboard")
	if fromEnricher {
		t.Fatal("nil enricher must not report as enriched")
	}
	if !reflect.DeepEqual(meta, Fallback("Rain")) {
		t.Fatalf("expected fallback metadata, got %+v", meta)
	}
}
