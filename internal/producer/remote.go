package producer

import (
	"context"
	"fmt"

	"github.com/veldt-labs/shortcycle/internal/a2a"
	"github.com/veldt-labs/shortcycle/internal/models"
)

// RemoteProducer delegates rendering to a producer agent over the a2a
// protocol.
type RemoteProducer struct {
	client    *a2a.Client
	outputDir string
}

// NewRemoteProducer builds a producer backed by the agent at the client's
// URL. Rendered files land in outputDir on the agent's host.
func NewRemoteProducer(client *a2a.Client, outputDir string) *RemoteProducer {
	if outputDir == "" {
		outputDir = "output"
	}
	return &RemoteProducer{client: client, outputDir: outputDir}
}

func (p *RemoteProducer) Produce(ctx context.Context, prompt string, constraints models.Constraints) (RenderResult, error) {
	taskInput := map[string]any{
		"prompt":     prompt,
		"output_dir": p.outputDir,
	}
	if constraints.DurationSeconds > 0 {
		taskInput["video_duration"] = constraints.DurationSeconds
	}

	status, err := p.client.ExecuteTask(ctx, a2a.Task{Skill: a2a.SkillProduce, Input: taskInput})
	if err != nil {
		return RenderResult{}, err
	}
	if status.State != a2a.TaskCompleted {
		return RenderResult{}, fmt.Errorf("producer agent reported %s: %s", status.State, status.Error)
	}

	result := RenderResult{
		VideoPath:  status.OutputString("video_path"),
		SourcePath: status.OutputString("original_video_path"),
	}
	if result.VideoPath == "" {
		return RenderResult{}, fmt.Errorf("producer agent completed without a video path")
	}
	return result, nil
}
