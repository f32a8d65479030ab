// Package a2a implements the agent-to-agent HTTP protocol used to split the
// pipeline across standalone agent processes. Each agent exposes an agent
// card, a task endpoint, and a health check; the orchestrator discovers and
// drives them through the Client.
package a2a

import "encoding/json"

// Protocol and transport identifiers carried on agent cards.
const (
	ProtocolVersion    = "0.3.0"
	TransportHTTPJSON  = "HTTP+JSON"
	TransportJSONRPC   = "JSONRPC"
	DefaultCardVersion = "1.0.0"
)

// Skill IDs served by the built-in agents.
const (
	SkillPlan    = "plan"
	SkillReview  = "review"
	SkillProduce = "produce"
	SkillUpload  = "upload"
)

// AgentSkill describes one capability an agent advertises.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming  bool           `json:"streaming"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// AgentCard is the metadata document served at /a2a/agent_card.
type AgentCard struct {
	Name               string             `json:"name"`
	Description        string             `json:"description"`
	URL                string             `json:"url"`
	Version            string             `json:"version"`
	ProtocolVersion    string             `json:"protocol_version"`
	Skills             []AgentSkill       `json:"skills"`
	PreferredTransport string             `json:"preferred_transport,omitempty"`
	DefaultInputModes  []string           `json:"default_input_modes"`
	DefaultOutputModes []string           `json:"default_output_modes"`
	Capabilities       *AgentCapabilities `json:"capabilities,omitempty"`
	SupportsAuthCard   bool               `json:"supports_authenticated_extended_card"`
}

// NewAgentCard fills in the protocol boilerplate around an agent's identity.
func NewAgentCard(name, description, url string, skills ...AgentSkill) AgentCard {
	return AgentCard{
		Name:               name,
		Description:        description,
		URL:                url,
		Version:            DefaultCardVersion,
		ProtocolVersion:    ProtocolVersion,
		Skills:             skills,
		PreferredTransport: TransportHTTPJSON,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Capabilities:       &AgentCapabilities{Streaming: false},
	}
}

// TaskState tracks where a task is in its lifecycle.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// Task is the unit of work posted to /a2a/tasks.
type Task struct {
	Skill  string         `json:"skill"`
	Input  map[string]any `json:"input"`
	TaskID string         `json:"task_id,omitempty"`
}

// TaskStatus is the result an agent returns for a task.
type TaskStatus struct {
	State   TaskState      `json:"state"`
	Output  map[string]any `json:"output,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Completed builds a successful status with the given output.
func Completed(output map[string]any, message string) TaskStatus {
	return TaskStatus{State: TaskCompleted, Output: output, Message: message}
}

// Failed builds a failed status from an error.
func Failed(err error, message string) TaskStatus {
	status := TaskStatus{State: TaskFailed, Message: message}
	if err != nil {
		status.Error = err.Error()
		if message == "" {
			status.Message = err.Error()
		}
	}
	return status
}

// OutputString extracts a string field from a task output, tolerating
// missing keys and JSON number/other scalar types.
func (s TaskStatus) OutputString(key string) string {
	if s.Output == nil {
		return ""
	}
	v, ok := s.Output[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// OutputInt extracts an integer field from a task output. JSON decoding
// delivers numbers as float64.
func (s TaskStatus) OutputInt(key string) int {
	if s.Output == nil {
		return 0
	}
	switch v := s.Output[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}
