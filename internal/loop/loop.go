// Package loop implements the bounded Planner/Reviewer feedback negotiation
// at the heart of Shortcycle. The controller drives proposer->reviewer rounds,
// accumulates rejection context between rounds, and stops on the first
// approval or when the attempts budget runs out.
//
// The controller holds no transport, retry, or health-check logic: the
// collaborators are injected as interfaces and treated as fallible black
// boxes. Anything networked lives in an adapter.
package loop

import (
	"context"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// DefaultMaxAttempts is the attempts budget used when none is configured.
const DefaultMaxAttempts = 5

// Proposer produces a candidate storyboard for a round.
//
// On round 1, input equals the original topic and priorFeedback is empty.
// On later rounds, input is the synthesized rejection context, which already
// embeds the previous feedback; priorFeedback repeats the last judgment's
// feedback verbatim for inspectability.
type Proposer interface {
	Propose(ctx context.Context, topic, input, priorFeedback string) (string, error)
}

// Reviewer evaluates a candidate against the constraints and returns a
// judgment. Scoring is opaque to the controller: only Status decides control
// flow, and scores may legitimately go down between rounds.
type Reviewer interface {
	Review(ctx context.Context, candidate string, constraints models.Constraints) (models.Judgment, error)
}

// Synthesizer converts a rejection into the next round's proposer input.
// Implementations must be deterministic and must carry the rejection feedback
// forward verbatim; dropping it between rounds breaks the convergence
// behavior the loop depends on.
type Synthesizer interface {
	Synthesize(topic, previousInput, candidate string, judgment models.Judgment, constraints models.Constraints) string
}

// Config bounds and parameterizes a feedback loop run.
type Config struct {
	// MaxAttempts is the round budget. Must be at least 1.
	MaxAttempts int

	// Constraints are passed to the reviewer and embedded in synthesized
	// rejection context.
	Constraints models.Constraints
}

// Result is the successful terminal state of a run.
type Result struct {
	// ApprovedCandidate is the storyboard the reviewer approved.
	ApprovedCandidate string

	// FinalScore is the score of the approving judgment.
	FinalScore int

	// Attempts is the number of rounds executed, including the approving one.
	Attempts int

	// History holds every round in order. The final round is the approval.
	History []models.Round
}

// Controller drives the bounded feedback loop. It is stateless across runs:
// independent runs may execute concurrently against the same collaborators.
type Controller struct {
	proposer Proposer
	reviewer Reviewer
	synth    Synthesizer
	cfg      Config
}

// NewController wires a controller from its collaborators. A nil synthesizer
// falls back to the deterministic default. A zero MaxAttempts falls back to
// DefaultMaxAttempts; negative values are preserved so Run can reject them.
func NewController(proposer Proposer, reviewer Reviewer, synth Synthesizer, cfg Config) *Controller {
	if synth == nil {
		synth = DefaultSynthesizer{}
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Controller{
		proposer: proposer,
		reviewer: reviewer,
		synth:    synth,
		cfg:      cfg,
	}
}

// Run executes the feedback loop for a topic.
//
// Terminal outcomes, all discriminable by the caller:
//   - approval: (*Result, nil)
//   - exhaustion: (nil, *ExhaustedError) with the full history
//   - collaborator failure: (nil, *CollaboratorError) with role and round
//   - bad configuration: (nil, ErrConfiguration) before any collaborator call
//
// Rounds are strictly sequential; round indices are monotonic from 1. The
// history is owned by the controller for the duration of the run and handed
// off in the result or error once the run terminates.
func (c *Controller) Run(ctx context.Context, topic string) (*Result, error) {
	if c.cfg.MaxAttempts < 1 {
		return nil, ErrConfiguration
	}

	currentInput := topic
	priorFeedback := ""
	attempts := 0
	var history []models.Round

	for attempts < c.cfg.MaxAttempts {
		attempts++

		candidate, err := c.proposer.Propose(ctx, topic, currentInput, priorFeedback)
		if err != nil {
			return nil, &CollaboratorError{Role: RoleProposer, Round: attempts, History: history, Err: err}
		}

		judgment, err := c.reviewer.Review(ctx, candidate, c.cfg.Constraints)
		if err != nil {
			return nil, &CollaboratorError{Role: RoleReviewer, Round: attempts, History: history, Err: err}
		}

		history = append(history, models.Round{
			Iteration: attempts,
			Candidate: candidate,
			Judgment:  judgment,
		})

		if judgment.Approved() {
			// Quality-satisfied stop: any remaining budget is ignored.
			return &Result{
				ApprovedCandidate: candidate,
				FinalScore:        judgment.Score,
				Attempts:          attempts,
				History:           history,
			}, nil
		}

		currentInput = c.synth.Synthesize(topic, currentInput, candidate, judgment, c.cfg.Constraints)
		priorFeedback = judgment.Feedback
	}

	return nil, &ExhaustedError{MaxAttempts: c.cfg.MaxAttempts, History: history}
}
