package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/models"
)

// Reviewer evaluates storyboard candidates with an LLM and returns structured
// judgments. Implements loop.Reviewer.
//
// Failure posture: a transport or API error is a collaborator failure and is
// returned as an error. An unparseable or malformed verdict is a quality
// problem and degrades to a Rejected judgment with score 0, so the loop can
// keep negotiating.
type Reviewer struct {
	llm    Completer
	logger zerolog.Logger
}

// NewReviewer builds a reviewer around an LLM backend.
func NewReviewer(llm Completer) *Reviewer {
	return &Reviewer{
		llm:    llm,
		logger: logging.WithAgent("reviewer"),
	}
}

// verdictResponse is the JSON shape the reviewer model returns.
type verdictResponse struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
	Score    int    `json:"score"`
}

// Review evaluates one candidate against the constraints.
func (r *Reviewer) Review(ctx context.Context, candidate string, constraints models.Constraints) (models.Judgment, error) {
	raw, err := r.llm.CompleteJSON(ctx, reviewerSystemPrompt, r.evaluationPrompt(candidate, constraints))
	if err != nil {
		return models.Judgment{}, fmt.Errorf("reviewer evaluation failed: %w", err)
	}

	judgment := r.parseVerdict(raw)
	r.logger.Debug().
		Str("status", string(judgment.Status)).
		Int("score", judgment.Score).
		Msg("candidate reviewed")
	return judgment, nil
}

func (r *Reviewer) evaluationPrompt(candidate string, constraints models.Constraints) string {
	var b strings.Builder
	if constraints.DurationSeconds > 0 {
		fmt.Fprintf(&b,
			"IMPORTANT: The video MUST be exactly %d seconds long. Verify that the storyboard explicitly mentions this duration.\n\n",
			constraints.DurationSeconds)
	}
	if constraints.Style != "" {
		fmt.Fprintf(&b, "REQUIRED STYLE: %s\n\n", constraints.Style)
	}
	fmt.Fprintf(&b, `Evaluate this storyboard:
%s

Check ALL criteria systematically:
1. Is the theme appropriate (Healing/ASMR/Nature/Relaxing)?
2. Does it follow the storyboard format (VIDEO SPECIFICATIONS, STORYBOARD sections, OVERALL PROMPT)?
3. Does it mention 1080x1920 resolution and specify duration?
4. Are camera movements (if any) slow and calming?
5. Is the storyboard detailed and professional?
6. Is the content specific and descriptive enough?

Output your evaluation as JSON only (no additional text):`, candidate)
	return b.String()
}

// parseVerdict turns raw model output into a judgment, degrading to a
// rejection when the output cannot be trusted.
func (r *Reviewer) parseVerdict(raw string) models.Judgment {
	var parsed verdictResponse
	if err := decodeLenient(raw, &parsed); err != nil {
		r.logger.Warn().Err(err).Msg("reviewer verdict unparseable, treating as rejection")
		return models.Judgment{
			Status:   models.JudgmentRejected,
			Score:    0,
			Feedback: "reviewer returned an unparseable verdict; produce a cleaner storyboard that strictly follows the required format",
		}
	}

	judgment := models.Judgment{
		Status:   models.ParseJudgmentStatus(parsed.Status),
		Score:    models.ClampScore(parsed.Score),
		Feedback: strings.TrimSpace(parsed.Feedback),
	}

	// An approval without a recognizable status string is not trusted.
	if judgment.Status == models.JudgmentRejected && parsed.Status != "" &&
		!strings.EqualFold(strings.TrimSpace(parsed.Status), "rejected") {
		judgment.Feedback = fmt.Sprintf("invalid verdict status %q. %s", parsed.Status, judgment.Feedback)
	}

	return judgment
}
