package loop

import (
	"fmt"
	"strings"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// NoFeedbackPlaceholder substitutes for an empty rejection feedback so the
// next round never starts from degenerate empty context.
const NoFeedbackPlaceholder = "no specific feedback provided"

// DefaultSynthesizer composes the next round's proposer input from a
// rejection. Pure string composition, no LLM involved: the output names what
// was rejected, quotes the reviewer's feedback verbatim, and restates the
// original request and the duration constraint. Each synthesized input
// therefore carries strictly more context than the topic it grew from.
type DefaultSynthesizer struct{}

// Synthesize builds the rejection context for the next round.
func (DefaultSynthesizer) Synthesize(topic, previousInput, candidate string, judgment models.Judgment, constraints models.Constraints) string {
	feedback := strings.TrimSpace(judgment.Feedback)
	if feedback == "" {
		feedback = NoFeedbackPlaceholder
	}

	duration := "not specified"
	if constraints.DurationSeconds > 0 {
		duration = fmt.Sprintf("%d seconds", constraints.DurationSeconds)
	}

	var b strings.Builder
	b.WriteString("Previous storyboard was REJECTED by the reviewer.\n\n")
	b.WriteString("REJECTED STORYBOARD:\n")
	b.WriteString(strings.TrimSpace(candidate))
	b.WriteString("\n\nREJECTION REASON:\n")
	b.WriteString(feedback)
	b.WriteString("\n\nORIGINAL REQUEST: ")
	b.WriteString(topic)
	b.WriteString("\nREQUIRED DURATION: ")
	b.WriteString(duration)
	if constraints.Style != "" {
		b.WriteString("\nREQUIRED STYLE: ")
		b.WriteString(constraints.Style)
	}
	b.WriteString("\n\nYou MUST create a NEW storyboard that fixes all issues and keeps the required style.")
	return b.String()
}
