// Package models defines the shared data types for Shortcycle.
package models

import "strings"

// JudgmentStatus is the reviewer's verdict on a candidate storyboard.
type JudgmentStatus string

const (
	// JudgmentApproved terminates the feedback loop with the current candidate.
	JudgmentApproved JudgmentStatus = "approved"

	// JudgmentRejected sends the loop into another round with synthesized feedback.
	JudgmentRejected JudgmentStatus = "rejected"
)

// ParseJudgmentStatus normalizes a raw status string to a JudgmentStatus.
// Anything that is not recognizably an approval is treated as a rejection,
// matching the gatekeeper posture of the reviewer.
func ParseJudgmentStatus(raw string) JudgmentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "approve", "accepted":
		return JudgmentApproved
	default:
		return JudgmentRejected
	}
}

// Judgment is the reviewer's structured verdict on one candidate.
type Judgment struct {
	// Status decides control flow; the loop inspects nothing else.
	Status JudgmentStatus `json:"status"`

	// Score is a 0-100 suitability score. Higher is better. The loop
	// records it but never branches on it: scores are not required to
	// improve across rounds.
	Score int `json:"score"`

	// Feedback carries the reviewer's instructions for the next attempt.
	// Required to be actionable on rejection; advisory on approval.
	Feedback string `json:"feedback"`
}

// Approved reports whether the judgment terminates the loop.
func (j Judgment) Approved() bool {
	return j.Status == JudgmentApproved
}

// ClampScore bounds a raw score into the 0-100 judgment range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Round is one proposer->reviewer cycle. Rounds are immutable once recorded
// and appended to an ordered history, never mutated retroactively.
type Round struct {
	// Iteration is the 1-based sequence number of the round.
	Iteration int `json:"iteration"`

	// Candidate is the storyboard prompt produced this round.
	Candidate string `json:"candidate"`

	// Judgment is the reviewer's verdict on Candidate.
	Judgment Judgment `json:"judgment"`
}

// Constraints are the acceptance bounds a candidate is reviewed against.
type Constraints struct {
	// DurationSeconds is the exact target clip length. Shorts are capped
	// at 60 seconds.
	DurationSeconds int `json:"duration_seconds" yaml:"duration_seconds" mapstructure:"duration_seconds"`

	// Style names the content theme the reviewer enforces.
	Style string `json:"style" yaml:"style" mapstructure:"style"`
}
