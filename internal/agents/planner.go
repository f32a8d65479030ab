// Package agents implements the LLM-backed planner and reviewer collaborators
// consumed by the feedback loop, plus the metadata enricher that runs after
// approval. Each agent owns its prompts and response parsing; the loop core
// sees only the collaborator interfaces.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/models"
)

// Completer is the slice of the LLM client the agents need.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Planner generates storyboard candidates for the feedback loop and, after
// approval, publish metadata for the clip. Implements loop.Proposer and
// metadata.Enricher.
type Planner struct {
	llm         Completer
	constraints models.Constraints
	logger      zerolog.Logger
}

// NewPlanner builds a planner around an LLM backend.
func NewPlanner(llm Completer, constraints models.Constraints) *Planner {
	return &Planner{
		llm:         llm,
		constraints: constraints,
		logger:      logging.WithAgent("planner"),
	}
}

// Propose generates a storyboard candidate. On round 1 input equals the
// topic; on later rounds input is the synthesized rejection context, which
// switches the planner into revision mode.
func (p *Planner) Propose(ctx context.Context, topic, input, priorFeedback string) (string, error) {
	revision := input != topic

	var user string
	if revision {
		user = p.revisionPrompt(input)
	} else {
		user = p.firstRoundPrompt(topic)
	}

	p.logger.Debug().Bool("revision", revision).Str("topic", topic).Msg("generating storyboard")

	candidate, err := p.llm.Complete(ctx, plannerSystemPrompt+p.durationNote(), user)
	if err != nil {
		return "", fmt.Errorf("planner generation failed: %w", err)
	}

	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", fmt.Errorf("planner returned an empty storyboard for topic %q", topic)
	}
	return candidate, nil
}

// durationNote appends the hard duration requirement to the system prompt.
func (p *Planner) durationNote() string {
	if p.constraints.DurationSeconds <= 0 {
		return ""
	}
	return fmt.Sprintf(
		"\n\nIMPORTANT: The video MUST be exactly %d seconds long. Include this duration explicitly in your prompt.",
		p.constraints.DurationSeconds,
	)
}

func (p *Planner) firstRoundPrompt(topic string) string {
	duration := "the specified"
	if p.constraints.DurationSeconds > 0 {
		duration = fmt.Sprintf("%d", p.constraints.DurationSeconds)
	}
	return fmt.Sprintf(`User request: %s

Create a professional VIDEO STORYBOARD that captures the essence of %q as a healing/ASMR video.

Requirements:
- MUST specify "1080x1920 resolution" or "vertical 9:16 format"
- Create a detailed storyboard with multiple scenes/sequences
- Describe camera movements (static, slow pan, gentle zoom, etc. - choose what fits best)
- Be creative but maintain a calming, peaceful atmosphere

CRITICAL: In the "OVERALL PROMPT" section, you MUST start with:
"1080x1920 vertical format (9:16 aspect ratio), Duration: %s seconds. [then your visual description]"

Output your storyboard in the format specified above, then provide the final combined prompt.`, topic, topic, duration)
}

func (p *Planner) revisionPrompt(rejectionContext string) string {
	return fmt.Sprintf(`Previous storyboard attempt was rejected. Here is the full rejection context:

%s

Create a NEW storyboard that addresses all the feedback while maintaining the critical requirements above.
The new storyboard must be different from the previous one and fully compliant with all requirements.`, rejectionContext)
}

// metadataResponse is the JSON shape the enrichment call returns.
type metadataResponse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Enrich generates publish metadata for an approved storyboard. Errors are
// expected to be recovered by the caller's fallback.
func (p *Planner) Enrich(ctx context.Context, topic, storyboard string) (models.Metadata, error) {
	user := fmt.Sprintf("STORYBOARD:\n%s\n\nORIGINAL TOPIC: %s", storyboard, topic)

	raw, err := p.llm.CompleteJSON(ctx, metadataSystemPrompt, user)
	if err != nil {
		return models.Metadata{}, fmt.Errorf("metadata enrichment failed: %w", err)
	}

	var parsed metadataResponse
	if err := decodeLenient(raw, &parsed); err != nil {
		return models.Metadata{}, fmt.Errorf("metadata response unparseable: %w", err)
	}

	return models.Metadata{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Tags:        parsed.Tags,
	}, nil
}
