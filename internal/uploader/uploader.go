// Package uploader publishes rendered videos, either through a remote
// uploader agent or as a local dry run for development.
package uploader

import (
	"context"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// Privacy values accepted by the publish backend.
const (
	PrivacyPublic   = "public"
	PrivacyUnlisted = "unlisted"
	PrivacyPrivate  = "private"
)

// DefaultPrivacy keeps freshly generated clips out of public feeds until a
// human has looked at them.
const DefaultPrivacy = PrivacyUnlisted

// UploadResult describes a completed publish.
type UploadResult struct {
	WatchURL string
}

// Uploader publishes a rendered video with its metadata.
type Uploader interface {
	Upload(ctx context.Context, videoPath string, meta models.Metadata, privacy string) (UploadResult, error)
}

// NormalizePrivacy maps unknown values to the default.
func NormalizePrivacy(privacy string) string {
	switch privacy {
	case PrivacyPublic, PrivacyUnlisted, PrivacyPrivate:
		return privacy
	default:
		return DefaultPrivacy
	}
}
