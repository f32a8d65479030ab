package uploader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/veldt-labs/shortcycle/internal/logging"
	"github.com/veldt-labs/shortcycle/internal/models"
)

// DryRunUploader verifies the video exists and logs what would have been
// published. Used in development and when no uploader agent is configured.
type DryRunUploader struct {
	logger zerolog.Logger
}

func NewDryRunUploader() *DryRunUploader {
	return &DryRunUploader{logger: logging.Component("uploader")}
}

func (u *DryRunUploader) Upload(ctx context.Context, videoPath string, meta models.Metadata, privacy string) (UploadResult, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return UploadResult{}, fmt.Errorf("video file not readable: %w", err)
	}

	abs, err := filepath.Abs(videoPath)
	if err != nil {
		abs = videoPath
	}

	u.logger.Info().
		Str("video", abs).
		Str("title", meta.Title).
		Strs("tags", meta.Tags).
		Str("privacy", NormalizePrivacy(privacy)).
		Msg("dry-run upload, nothing published")

	return UploadResult{WatchURL: "file://" + abs}, nil
}
