// Package metadata produces publish metadata for an approved storyboard.
//
// Enrichment (an LLM call) is optional and fallible; the deterministic
// fallback is total. A run that reaches this package always ends up with
// usable metadata.
package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/models"
)

// baseTags is the fixed tag set every fallback upload carries.
var baseTags = []string{"healing", "asmr", "meditation", "relaxation"}

// Enricher generates metadata for an approved storyboard, typically via an
// LLM. Failures are recovered by the fallback and never propagate.
type Enricher interface {
	Enrich(ctx context.Context, topic, storyboard string) (models.Metadata, error)
}

// Fallback builds deterministic default metadata for a topic. Calling it
// twice with the same topic yields identical metadata.
func Fallback(topic string) models.Metadata {
	topic = strings.TrimSpace(topic)
	return models.Metadata{
		Title: fmt.Sprintf("Healing %s - Relaxing ASMR Video", topic),
		Description: fmt.Sprintf(
			"Experience the calming atmosphere of %s. Perfect for meditation, relaxation, and ASMR. #healing #asmr #meditation #relaxation",
			topic,
		),
		Tags: fallbackTags(topic),
	}
}

// fallbackTags unions the base tag set with the lowercased topic token.
func fallbackTags(topic string) []string {
	tags := make([]string, 0, len(baseTags)+1)
	tags = append(tags, baseTags...)

	token := strings.ToLower(topic)
	for _, t := range tags {
		if t == token {
			return tags
		}
	}
	if token != "" {
		tags = append(tags, token)
	}
	return tags
}

// EnrichOrFallback asks the enricher for metadata and substitutes the
// deterministic fallback when the enricher is absent, fails, or returns
// nothing. It is a total function: there is no error path. The second return
// reports whether the metadata came from the enricher.
func EnrichOrFallback(ctx context.Context, enricher Enricher, topic, storyboard string) (models.Metadata, bool) {
	if enricher == nil {
		return Fallback(topic), false
	}

	meta, err := enricher.Enrich(ctx, topic, storyboard)
	if err != nil {
		logger := logging.FromContext(ctx)
		logger.Warn().Err(err).Str("topic", topic).
			Msg("metadata enrichment failed, using fallback")
		return Fallback(topic), false
	}
	if meta.Empty() {
		return Fallback(topic), false
	}
	return meta, true
}
