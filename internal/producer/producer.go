// Package producer renders approved storyboards into video files, either by
// delegating to a remote producer agent or by shelling out to a local
// rendering command.
package producer

import (
	"context"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// RenderResult describes the artifacts of one render.
type RenderResult struct {
	// VideoPath is the final deliverable, looped and sized for upload.
	VideoPath string
	// SourcePath is the raw generated clip before loop processing, when the
	// backend distinguishes the two.
	SourcePath string
}

// Producer renders an approved storyboard prompt into a video file.
type Producer interface {
	Produce(ctx context.Context, prompt string, constraints models.Constraints) (RenderResult, error)
}
