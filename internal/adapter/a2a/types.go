// Package a2a implements the agent-to-agent HTTP protocol: wire types, the
// never-raise client used by the dispatcher, and result formatting.
//
// Every specialist worker exposes the same three routes:
//
//	GET  /.well-known/agent.json  -> AgentCard
//	POST /a2a                     -> Task in, Result out
//	GET  /health                  -> HealthResponse
package a2a

// Task statuses carried in Result.Status.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// MessagePart is one text fragment of a task message.
type MessagePart struct {
	Text string `json:"text"`
}

// TaskMessage carries the query to a worker.
type TaskMessage struct {
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// Task is the request body POSTed to a worker's /a2a route.
type Task struct {
	ID        string      `json:"id"`
	SessionID string      `json:"sessionId"`
	Message   TaskMessage `json:"message"`
}

// Query returns the first text part of the task message, or "".
func (t Task) Query() string {
	if len(t.Message.Parts) == 0 {
		return ""
	}
	return t.Message.Parts[0].Text
}

// NewTask builds a Task around a single user text part.
func NewTask(id, sessionID, query string) Task {
	return Task{
		ID:        id,
		SessionID: sessionID,
		Message: TaskMessage{
			Role:  "user",
			Parts: []MessagePart{{Text: query}},
		},
	}
}

// ArtifactPart is one text fragment of a result artifact.
type ArtifactPart struct {
	Text string `json:"text"`
}

// Artifact is one output produced by a worker.
type Artifact struct {
	Parts []ArtifactPart `json:"parts"`
}

// Result is the response body returned from a worker's /a2a route.
type Result struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Text returns the first text part of the first artifact, or "".
func (r Result) Text() string {
	if len(r.Artifacts) == 0 || len(r.Artifacts[0].Parts) == 0 {
		return ""
	}
	return r.Artifacts[0].Parts[0].Text
}

// CompletedResult builds a successful Result with a single artifact text part.
func CompletedResult(id, text string) Result {
	return Result{
		ID:        id,
		Status:    StatusCompleted,
		Artifacts: []Artifact{{Parts: []ArtifactPart{{Text: text}}}},
	}
}

// FailedResult builds a failed Result carrying an error string.
func FailedResult(id string, err error) Result {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Result{ID: id, Status: StatusFailed, Error: msg}
}

// AgentSkill describes one capability advertised on an agent card.
type AgentSkill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AgentCapabilities flags optional protocol features. Neither is implemented
// by the current workers.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentCard is the self-description served at /.well-known/agent.json.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	URL          string            `json:"url"`
	Version      string            `json:"version"`
	Capabilities AgentCapabilities `json:"capabilities"`
	Skills       []AgentSkill      `json:"skills"`
}

// HealthResponse is served at /health and doubles as the registration
// heartbeat acknowledgement.
type HealthResponse struct {
	Status   string `json:"status"`
	AgentID  string `json:"agent_id"`
	Endpoint string `json:"endpoint"`
}
