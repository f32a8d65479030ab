package a2a

import (
	"context"
	"fmt"
	"strings"

	"github.com/veldt-labs/shortcycle/internal/models"
)

// RemotePlanner drives a planner agent over the wire. Implements
// loop.Proposer.
type RemotePlanner struct {
	client      *Client
	constraints models.Constraints
}

// NewRemotePlanner builds a proposer backed by the agent at the client's URL.
func NewRemotePlanner(client *Client, constraints models.Constraints) *RemotePlanner {
	return &RemotePlanner{client: client, constraints: constraints}
}

// Propose requests a storyboard from the remote planner. On revision rounds
// the accumulated rejection context travels in the feedback field, which is
// what switches the remote agent into revision mode.
func (p *RemotePlanner) Propose(ctx context.Context, topic, input, priorFeedback string) (string, error) {
	taskInput := map[string]any{"topic": topic}
	if p.constraints.DurationSeconds > 0 {
		taskInput["video_duration"] = p.constraints.DurationSeconds
	}
	if input != topic {
		taskInput["feedback"] = input
	}

	status, err := p.client.ExecuteTask(ctx, Task{Skill: SkillPlan, Input: taskInput})
	if err != nil {
		return "", err
	}
	if status.State != TaskCompleted {
		return "", fmt.Errorf("planner agent reported %s: %s", status.State, status.Error)
	}

	candidate := strings.TrimSpace(status.OutputString("prompt"))
	if candidate == "" {
		return "", fmt.Errorf("planner agent returned an empty storyboard for topic %q", topic)
	}
	return candidate, nil
}

// RemoteReviewer drives a reviewer agent over the wire. Implements
// loop.Reviewer.
type RemoteReviewer struct {
	client *Client
}

// NewRemoteReviewer builds a reviewer backed by the agent at the client's URL.
func NewRemoteReviewer(client *Client) *RemoteReviewer {
	return &RemoteReviewer{client: client}
}

// Review asks the remote reviewer for a verdict on the candidate.
func (r *RemoteReviewer) Review(ctx context.Context, candidate string, constraints models.Constraints) (models.Judgment, error) {
	taskInput := map[string]any{"prompt": candidate}
	if constraints.DurationSeconds > 0 {
		taskInput["expected_duration"] = constraints.DurationSeconds
	}

	status, err := r.client.ExecuteTask(ctx, Task{Skill: SkillReview, Input: taskInput})
	if err != nil {
		return models.Judgment{}, err
	}
	if status.State != TaskCompleted {
		return models.Judgment{}, fmt.Errorf("reviewer agent reported %s: %s", status.State, status.Error)
	}

	return models.Judgment{
		Status:   models.ParseJudgmentStatus(status.OutputString("status")),
		Score:    models.ClampScore(status.OutputInt("score")),
		Feedback: strings.TrimSpace(status.OutputString("feedback")),
	}, nil
}
