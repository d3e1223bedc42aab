package httpserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/config"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/usecase"
)

// defaultModelID is the single virtual model the gateway advertises.
// OpenAI clients address the whole agent fleet through this one id.
const defaultModelID = "agentic-ai-system"

// maxChatBodyBytes caps a chat request body at 1 MiB.
const maxChatBodyBytes = 1 << 20

// SessionThrottle gates chat turns per session. Over-limit turns still get
// a 200 response; the body asks the caller to slow down.
type SessionThrottle interface {
	Allow(ctx context.Context, sessionID string) (bool, time.Duration, error)
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Chat        usecase.ChatService
	Throttle    SessionThrottle
	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
	QdrantCheck func(ctx context.Context) error
	KafkaCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, chat usecase.ChatService, throttle SessionThrottle, dbCheck func(context.Context) error, redisCheck func(context.Context) error, qdrantCheck func(context.Context) error, kafkaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Chat: chat, Throttle: throttle, DBCheck: dbCheck, RedisCheck: redisCheck, QdrantCheck: qdrantCheck, KafkaCheck: kafkaCheck}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the OpenAI chat body plus session extension
// fields. Standard clients simply omit the extensions; temperature and
// max_tokens are accepted for compatibility but the pipeline decides its
// own sampling parameters. Session and user ids carry no validate tags:
// bad values are ignored, not rejected.
type chatCompletionRequest struct {
	Model       string        `json:"model" validate:"omitempty,max=128"`
	Messages    []chatMessage `json:"messages" validate:"max=500"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int          `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	SessionID   string        `json:"session_id"`
	User        string        `json:"user"`
	DeskName    string        `json:"desk_name"`
}

type chatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletionResponse carries the session_id extension so clients can
// pass it back and continue the conversation.
type chatCompletionResponse struct {
	ID        string                 `json:"id"`
	Object    string                 `json:"object"`
	Created   int64                  `json:"created"`
	Model     string                 `json:"model"`
	SessionID string                 `json:"session_id"`
	Choices   []chatCompletionChoice `json:"choices"`
	Usage     chatUsage              `json:"usage"`
}

func newCompletionID() string {
	u := uuid.New()
	return "chatcmpl-" + hex.EncodeToString(u[:4])
}

func buildChatResponse(content, model, sessionID string) chatCompletionResponse {
	return chatCompletionResponse{
		ID:        newCompletionID(),
		Object:    "chat.completion",
		Created:   time.Now().Unix(),
		Model:     model,
		SessionID: sessionID,
		Choices: []chatCompletionChoice{
			{Index: 0, Message: chatMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
		},
		Usage: chatUsage{},
	}
}

// lastUserMessage returns the content of the most recent user-role message.
func lastUserMessage(msgs []chatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func throttledMessage(retryAfter time.Duration) string {
	secs := int(retryAfter / time.Second)
	if retryAfter%time.Second > 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("You're sending messages too quickly. Please wait %d seconds and try again.", secs)
}

// ChatCompletionsHandler serves POST /v1/chat/completions. Pipeline and
// upstream failures are reported inside a 200 response body; only an
// undecodable or structurally invalid request earns an error envelope.
func (s *Server) ChatCompletionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.Cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.Cfg.RequestTimeout)
			defer cancel()
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			verrs := map[string]string{}
			if fes, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range fes {
					verrs[strings.ToLower(fe.Field())] = fe.Tag()
				}
			}
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}
		model := req.Model
		if model == "" {
			model = defaultModelID
		}

		sessionID := req.SessionID
		if res := ValidateSessionID(sessionID); !res.Valid {
			LoggerFrom(r).Warn("ignoring invalid session_id", slog.String("code", res.Errors[0].Code))
			sessionID = ""
		}
		userID := req.User
		if res := ValidateUserID(userID); !res.Valid {
			LoggerFrom(r).Warn("ignoring invalid user id", slog.String("code", res.Errors[0].Code))
			userID = ""
		}
		deskName := SanitizeString(req.DeskName)

		message := lastUserMessage(req.Messages)
		if message == "" {
			sessionID = s.Chat.ResolveSession(ctx, sessionID, userID, deskName)
			writeJSON(w, http.StatusOK, buildChatResponse("No user message found.", model, sessionID))
			return
		}

		sessionID = s.Chat.ResolveSession(ctx, sessionID, userID, deskName)
		if s.Throttle != nil {
			allowed, retryAfter, _ := s.Throttle.Allow(ctx, sessionID)
			if !allowed {
				s.respond(w, r, req.Stream, throttledMessage(retryAfter), model, sessionID)
				return
			}
		}

		result := s.Chat.HandleTurn(ctx, usecase.TurnInput{
			SessionID: sessionID,
			UserID:    userID,
			DeskName:  deskName,
			Message:   message,
		})
		s.respond(w, r, req.Stream, result.Response, model, result.SessionID)
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, stream bool, content, model, sessionID string) {
	if stream {
		s.streamCompletion(w, r, content, model, sessionID)
		return
	}
	writeJSON(w, http.StatusOK, buildChatResponse(content, model, sessionID))
}

// RootHandler reports service identity for probes and OpenAI clients.
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": "Agentic AI System",
			"version": "2.0.0",
		})
	}
}

// ModelsHandler lists the single virtual model id. Some OpenAI clients call
// this to discover available models before their first completion request.
func (s *Server) ModelsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": defaultModelID, "object": "model", "created": 0, "owned_by": "local"},
			},
		})
	}
}

// ReadyzHandler returns a readiness handler that probes Redis, Qdrant,
// Postgres and the audit broker. Checks left nil are skipped.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 4)
		run := func(name string, fn func(context.Context) error) {
			if fn == nil {
				return
			}
			if err := fn(ctx); err != nil {
				checks = append(checks, check{Name: name, OK: false, Details: err.Error()})
				return
			}
			checks = append(checks, check{Name: name, OK: true})
		}
		run("redis", s.RedisCheck)
		run("qdrant", s.QdrantCheck)
		run("db", s.DBCheck)
		run("kafka", s.KafkaCheck)
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
