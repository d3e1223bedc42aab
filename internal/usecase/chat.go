package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// TaskRunner schedules pipeline runs and fire-and-forget persistence on the
// bounded work pool.
type TaskRunner interface {
	Do(ctx context.Context, fn func(context.Context)) error
	TrySubmit(fn func(context.Context)) bool
}

// TurnInput is one chat turn after wire decoding: the last user message plus
// the request's extension fields.
type TurnInput struct {
	SessionID string
	UserID    string
	DeskName  string
	Message   string
}

// TurnResult carries the assistant response and the session it belongs to.
type TurnResult struct {
	SessionID string
	Response  string
}

// ChatService executes one conversational turn end to end: session binding,
// history enrichment, pipeline run, and deferred persistence.
type ChatService struct {
	Sessions domain.SessionStore
	Pipeline Pipeline
	Pool     TaskRunner
	Archive  domain.TurnArchive
	Audit    domain.AuditPublisher
}

// NewChatService constructs a ChatService. Archive and audit sinks are
// optional; pass nil to disable them.
func NewChatService(sessions domain.SessionStore, pipeline Pipeline, pool TaskRunner, archive domain.TurnArchive, audit domain.AuditPublisher) ChatService {
	return ChatService{
		Sessions: sessions,
		Pipeline: pipeline,
		Pool:     pool,
		Archive:  archive,
		Audit:    audit,
	}
}

// ResolveSession returns the incoming session id, or mints a new session
// bound to the caller when none was supplied.
func (s ChatService) ResolveSession(ctx domain.Context, sessionID, userID, deskName string) string {
	if sessionID != "" {
		return sessionID
	}
	if deskName == "" {
		deskName = domain.DeskForUser(userID)
	}
	return s.Sessions.Create(ctx, userID, deskName)
}

// HandleTurn runs one turn through the pipeline and schedules persistence of
// the original message and final response. It always produces a response
// body; failures surface as "Error: ..." text.
func (s ChatService) HandleTurn(ctx domain.Context, in TurnInput) TurnResult {
	start := time.Now()
	deskName := in.DeskName
	if deskName == "" {
		deskName = domain.DeskForUser(in.UserID)
	}
	sessionID := s.ResolveSession(ctx, in.SessionID, in.UserID, deskName)

	history := s.Sessions.Load(ctx, sessionID)
	enriched := in.Message
	if block := domain.RenderHistory(history); block != "" {
		enriched = block + "\n\n[Current Query]\n" + in.Message
	}

	var st PipelineState
	err := s.Pool.Do(ctx, func(runCtx context.Context) {
		st = s.Pipeline.Run(runCtx, enriched)
	})
	if err != nil {
		slog.Warn("pipeline slot wait aborted",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return TurnResult{
			SessionID: sessionID,
			Response:  "Error: the request was cancelled before processing began.",
		}
	}

	turn := domain.TurnRecord{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		UserID:       in.UserID,
		DeskName:     deskName,
		Query:        in.Message,
		Response:     st.Final,
		Agents:       st.Decision.Agents,
		Strategy:     st.Decision.Strategy,
		FallbackUsed: st.Decision.FallbackUsed,
		DurationMS:   time.Since(start).Milliseconds(),
		CreatedAt:    time.Now().UTC(),
	}
	if !s.Pool.TrySubmit(func(bg context.Context) { s.persistTurn(bg, turn) }) {
		slog.Warn("turn persistence dropped", slog.String("session_id", sessionID))
	}

	slog.Info("chat turn completed",
		slog.String("session_id", sessionID),
		slog.String("desk", deskName),
		slog.String("route", st.Route),
		slog.Bool("failed", st.Err != ""),
		slog.Duration("duration", time.Since(start)))
	return TurnResult{SessionID: sessionID, Response: st.Final}
}

// persistTurn writes one finished turn to every configured sink. Sinks fail
// independently; a Kafka outage must not cost the session its history.
func (s ChatService) persistTurn(ctx domain.Context, turn domain.TurnRecord) {
	s.Sessions.Append(ctx, turn.SessionID, turn.Query, turn.Response, turn.UserID, turn.DeskName)
	observability.ObservePersist("session", true)

	if s.Archive != nil {
		if err := s.Archive.Save(ctx, turn); err != nil {
			slog.Error("turn archive save failed",
				slog.String("turn_id", turn.ID), slog.Any("error", err))
			observability.ObservePersist("archive", false)
		} else {
			observability.ObservePersist("archive", true)
		}
	}

	if s.Audit != nil {
		if err := s.Audit.PublishTurn(ctx, turn); err != nil {
			slog.Error("turn audit publish failed",
				slog.String("turn_id", turn.ID), slog.Any("error", err))
			observability.ObservePersist("audit", false)
		} else {
			observability.ObservePersist("audit", true)
		}
	}
}
