package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("unavailable")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrSchemaInvalid   = errors.New("schema invalid")
	ErrInternal        = errors.New("internal error")
)

// Message roles on the chat wire and in the session log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one entry of a conversation log.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a TTL-bounded conversation record.
// Invariants: len(Messages) bounded by the store; MessageCount is monotonic
// and counts appended turns including rotated-out ones.
type Session struct {
	ID           string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	DeskName     string    `json:"desk_name"`
	UserRole     string    `json:"user_role"`
	Messages     []Message `json:"messages"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Worker registration status values.
const (
	StatusHealthy = "healthy"
	StatusUnknown = "unknown"
)

// WorkerRegistration is one row of the service registry.
type WorkerRegistration struct {
	AgentID      string    `json:"agent_id"`
	DeskName     string    `json:"desk_name"`
	Endpoint     string    `json:"endpoint"`
	Capabilities []string  `json:"capabilities"`
	DeskNames    []string  `json:"desk_names"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Fan-out strategies chosen by the model router.
const (
	StrategyParallel   = "parallel"
	StrategySequential = "sequential"
)

// RouterDecision is the model router's output.
// Invariant: Agents is non-empty; Sequential only appears for selections
// that include the risk worker.
type RouterDecision struct {
	Agents       []string `json:"agents"`
	Strategy     string   `json:"strategy"`
	Reasoning    string   `json:"reasoning"`
	FallbackUsed bool     `json:"fallback_used"`
}

// RetrievedChunk is one k-NN hit; Distance is in [0,1], ascending order.
type RetrievedChunk struct {
	Text     string
	Source   string
	Distance float64
}

// TurnRecord is one archived chat turn (compliance trail and audit stream).
type TurnRecord struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	DeskName     string    `json:"desk_name"`
	Query        string    `json:"query"`
	Response     string    `json:"response"`
	Agents       []string  `json:"agents"`
	Strategy     string    `json:"strategy"`
	FallbackUsed bool      `json:"fallback_used"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionStore (port)
//
// All operations are best-effort: implementations log backend faults and
// degrade instead of returning them. A store outage weakens multi-turn
// behavior but never fails a single-turn request.

type SessionStore interface {
	// Create mints a fresh session id and persists an empty log. The id is
	// returned even when persistence fails.
	Create(ctx Context, userID, deskName string) string
	// Load returns the message log, empty on miss or backend fault.
	Load(ctx Context, sessionID string) []Message
	// Append adds one user/assistant turn, rotates, refreshes TTL and bumps
	// the lifetime counter. Silently drops on backend fault.
	Append(ctx Context, sessionID, userText, assistantText, userID, deskName string)
}

// Registry (port)
//
// Same degradation contract: faults are logged and swallowed so routing can
// fall back to static configuration.

type Registry interface {
	Register(ctx Context, reg WorkerRegistration)
	Deregister(ctx Context, agentID string)
	// Discover returns nil on miss or fault.
	Discover(ctx Context, agentID string) *WorkerRegistration
	// ListAll returns every live registration, empty on fault.
	ListAll(ctx Context) []WorkerRegistration
	// Resolve returns the live endpoint when the worker is registered and
	// healthy, else fallbackURL.
	Resolve(ctx Context, agentID, fallbackURL string) string
}

// Retriever (port)

type Retriever interface {
	// Retrieve returns up to k chunks ordered by ascending distance; empty
	// on any fault.
	Retrieve(ctx Context, query string, k int) []RetrievedChunk
	// AddTexts ingests texts with parallel metadata; idempotent by content
	// hash. Ingest-side errors do surface.
	AddTexts(ctx Context, texts []string, metadatas []map[string]string) error
	// Count reports the index size, 0 on fault.
	Count(ctx Context) int
}

// AgentCaller (port)
//
// Never returns an error: every failure mode becomes a descriptive string in
// the result slot.

type AgentCaller interface {
	Call(ctx Context, endpoint, query string, timeout time.Duration, sessionID string) string
	// CallAll resolves each id, fans out under one shared deadline and
	// returns exactly one entry per input id.
	CallAll(ctx Context, agentIDs []string, query string, timeout time.Duration) map[string]string
}

// AIClient (port)

type AIClient interface {
	// Embed returns embedding vectors for texts.
	Embed(ctx Context, texts []string) ([][]float32, error)
	// ChatJSON performs a single deterministic (temperature 0) completion
	// expected to yield JSON.
	ChatJSON(ctx Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error)
	// Chat performs a single free-form completion.
	Chat(ctx Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// TurnArchive (port)

type TurnArchive interface {
	Save(ctx Context, turn TurnRecord) error
}

// AuditPublisher (port)

type AuditPublisher interface {
	PublishTurn(ctx Context, turn TurnRecord) error
}

// Context is an alias to allow decoupling from std context in domain.
// Adapters and usecases pass context.Context through.

type Context = context.Context
