package uploader

import (
	"context"
	"fmt"

	"github.com/veldt-labs/shortcycle/internal/a2a"
	"github.com/veldt-labs/shortcycle/internal/models"
)

// RemoteUploader delegates publishing to an uploader agent over the a2a
// protocol.
type RemoteUploader struct {
	client *a2a.Client
}

// NewRemoteUploader builds an uploader backed by the agent at the client's
// URL.
func NewRemoteUploader(client *a2a.Client) *RemoteUploader {
	return &RemoteUploader{client: client}
}

func (u *RemoteUploader) Upload(ctx context.Context, videoPath string, meta models.Metadata, privacy string) (UploadResult, error) {
	taskInput := map[string]any{
		"video_path":     videoPath,
		"privacy_status": NormalizePrivacy(privacy),
	}
	if !meta.Empty() {
		taskInput["youtube_metadata"] = map[string]any{
			"title":       meta.Title,
			"description": meta.Description,
			"tags":        meta.Tags,
		}
	}

	status, err := u.client.ExecuteTask(ctx, a2a.Task{Skill: a2a.SkillUpload, Input: taskInput})
	if err != nil {
		return UploadResult{}, err
	}
	if status.State != a2a.TaskCompleted {
		return UploadResult{}, fmt.Errorf("uploader agent reported %s: %s", status.State, status.Error)
	}

	url := status.OutputString("youtube_url")
	if url == "" {
		return UploadResult{}, fmt.Errorf("uploader agent completed without a watch URL")
	}
	return UploadResult{WatchURL: url}, nil
}
