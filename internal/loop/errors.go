package loop

import (
	"errors"
	"fmt"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// ErrConfiguration is returned when the controller is configured with an
// attempts budget below one. It is raised before any collaborator is invoked.
var ErrConfiguration = errors.New("max attempts must be at least 1")

// Role identifies which collaborator a failure originated from.
type Role string

const (
	RoleProposer Role = "proposer"
	RoleReviewer Role = "reviewer"
)

// CollaboratorError reports that a collaborator failed during a round. The
// controller does not retry the round; retry policy belongs to the
// collaborator's own transport layer. Distinct from exhaustion: a
// collaborator error points at a dependency, exhaustion at quality.
type CollaboratorError struct {
	// Role names the collaborator that failed.
	Role Role

	// Round is the 1-based round index the failure occurred in.
	Round int

	// History holds the rounds completed before the failure.
	History []models.Round

	// Err is the underlying collaborator error.
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s failed at round %d: %v", e.Role, e.Round, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// ExhaustedError reports that all attempts completed without an approval.
// It carries the full round history so the caller can inspect why
// convergence failed.
type ExhaustedError struct {
	// MaxAttempts is the budget that was used up.
	MaxAttempts int

	// History holds every completed round, all rejected.
	History []models.Round
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("no storyboard approved after %d attempts", e.MaxAttempts)
}

// Describe renders the terminal outcome of a run as a single sentence. Every
// outcome is discriminable: approval, exhaustion, and collaborator failure
// each produce a distinct summary.
func Describe(result *Result, err error) string {
	if err == nil && result != nil {
		return fmt.Sprintf("approved after %d rounds (score %d)", result.Attempts, result.FinalScore)
	}

	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Sprintf("exhausted after %d rounds with no approval", exhausted.MaxAttempts)
	}

	var collab *CollaboratorError
	if errors.As(err, &collab) {
		return fmt.Sprintf("failed due to a %s error at round %d", collab.Role, collab.Round)
	}

	if errors.Is(err, ErrConfiguration) {
		return "invalid configuration: " + err.Error()
	}

	return fmt.Sprintf("failed: %v", err)
}
