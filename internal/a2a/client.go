package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTaskTimeout = 300 * time.Second

// Client talks to one remote agent.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the agent at baseURL. Task calls can take
// minutes (video rendering), so the default timeout is generous.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// AgentCard fetches the remote agent's card.
func (c *Client) AgentCard(ctx context.Context) (AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/a2a/agent_card", nil)
	if err != nil {
		return AgentCard{}, fmt.Errorf("build agent card request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return AgentCard{}, fmt.Errorf("fetch agent card from %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return AgentCard{}, fmt.Errorf("agent card request to %s returned %s", c.baseURL, resp.Status)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return AgentCard{}, fmt.Errorf("decode agent card: %w", err)
	}
	return card, nil
}

// ExecuteTask posts a task and returns the agent's status. Transport errors
// are returned as errors; the caller decides whether a failed TaskStatus is
// fatal.
func (c *Client) ExecuteTask(ctx context.Context, task Task) (TaskStatus, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/a2a/tasks", bytes.NewReader(body))
	if err != nil {
		return TaskStatus{}, fmt.Errorf("build task request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("execute task %q on %s: %w", task.Skill, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return TaskStatus{}, fmt.Errorf("task %q on %s returned %s: %s", task.Skill, c.baseURL, resp.Status, strings.TrimSpace(string(raw)))
	}

	var status TaskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return TaskStatus{}, fmt.Errorf("decode task status: %w", err)
	}
	return status, nil
}

// Health reports whether the agent answers its health check.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
