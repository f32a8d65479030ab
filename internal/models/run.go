package models

import "time"

// RunStatus is the lifecycle state of one workflow run.
type RunStatus string

const (
	// RunStatusRunning marks a run whose feedback loop is still in flight.
	RunStatusRunning RunStatus = "running"

	// RunStatusApproved marks a run that converged on an approved storyboard.
	RunStatusApproved RunStatus = "approved"

	// RunStatusExhausted marks a run that used its full attempts budget with
	// no approval. The history explains why convergence failed.
	RunStatusExhausted RunStatus = "exhausted"

	// RunStatusFailed marks a run aborted by a collaborator error. Distinct
	// from exhaustion: it points at a dependency, not at quality.
	RunStatusFailed RunStatus = "failed"
)

// Terminal reports whether the status is a final outcome.
func (s RunStatus) Terminal() bool {
	return s == RunStatusApproved || s == RunStatusExhausted || s == RunStatusFailed
}

// Run is the persisted record of one workflow invocation.
type Run struct {
	// ID is the unique run identifier.
	ID string `json:"id"`

	// Topic is the original user request, immutable for the whole run.
	Topic string `json:"topic"`

	// Status is the run lifecycle state.
	Status RunStatus `json:"status"`

	// Attempts is the number of rounds actually executed.
	Attempts int `json:"attempts"`

	// MaxAttempts is the attempts budget the run was started with.
	MaxAttempts int `json:"max_attempts"`

	// ApprovedPrompt is the winning storyboard. Set only on approval.
	ApprovedPrompt string `json:"approved_prompt,omitempty"`

	// FinalScore is the score of the approving judgment.
	FinalScore int `json:"final_score"`

	// Error describes why the run failed. Set only on failure.
	Error string `json:"error,omitempty"`

	// Metadata is the publish metadata chosen for the clip.
	Metadata *Metadata `json:"metadata,omitempty"`

	// VideoPath is the rendered clip location, when production ran.
	VideoPath string `json:"video_path,omitempty"`

	// WatchURL is the published video URL, when the upload ran.
	WatchURL string `json:"watch_url,omitempty"`

	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at"`

	// FinishedAt is when the run reached a terminal status.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
