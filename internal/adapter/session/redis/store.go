// Package redis implements the session store on Redis.
//
// Every operation is best-effort: a Redis outage degrades multi-turn memory
// but must never fail a chat request, so faults are logged and swallowed and
// callers always get a usable value.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/fairyhunter13/agentic-ai-dispatcher/pkg/textx"
)

// Store keeps one JSON session record per key with a native Redis TTL as the
// absolute expiry.
type Store struct {
	rdb         *redis.Client
	keyPrefix   string
	ttl         time.Duration
	maxMessages int
	maxMsgChars int
}

// NewStore wires a session store over an existing Redis client.
func NewStore(rdb *redis.Client, keyPrefix string, ttl time.Duration, maxMessages, maxMsgChars int) *Store {
	return &Store{
		rdb:         rdb,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		maxMessages: maxMessages,
		maxMsgChars: maxMsgChars,
	}
}

var _ domain.SessionStore = (*Store)(nil)

// NewSessionID mints an opaque session identifier.
func NewSessionID() string {
	u := uuid.New()
	return fmt.Sprintf("sess-%x", u[:8])
}

func (s *Store) key(sessionID string) string {
	return s.keyPrefix + ":" + sessionID
}

// Create mints a session id and writes an empty record. The id is returned
// even when the write fails so the caller can proceed statelessly.
func (s *Store) Create(ctx context.Context, userID, deskName string) string {
	id := NewSessionID()
	if deskName == "" {
		deskName = domain.DeskForUser(userID)
	}
	now := time.Now().UTC()
	rec := domain.Session{
		ID:        id,
		UserID:    userID,
		DeskName:  deskName,
		UserRole:  domain.RoleForUser(userID),
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, rec); err != nil {
		observability.ObserveSessionOp("create", false)
		slog.Warn("session create not persisted",
			slog.String("session_id", id), slog.Any("error", err))
		return id
	}
	observability.ObserveSessionOp("create", true)
	return id
}

// Load returns the message log, empty on miss or backend fault.
func (s *Store) Load(ctx context.Context, sessionID string) []domain.Message {
	rec, err := s.read(ctx, sessionID)
	if err != nil {
		observability.ObserveSessionOp("load", false)
		slog.Warn("session load failed",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return []domain.Message{}
	}
	observability.ObserveSessionOp("load", true)
	if rec == nil {
		return []domain.Message{}
	}
	return rec.Messages
}

// Append adds one user/assistant turn. Read-modify-write with
// last-writer-wins; concurrent turns for one session may interleave, which
// is acceptable for conversation memory.
func (s *Store) Append(ctx context.Context, sessionID, userText, assistantText, userID, deskName string) {
	rec, err := s.read(ctx, sessionID)
	if err != nil {
		observability.ObserveSessionOp("append", false)
		slog.Warn("session append dropped (read)",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return
	}
	now := time.Now().UTC()
	if rec == nil {
		// Appending to an expired or never-created session resurrects it.
		rec = &domain.Session{ID: sessionID, CreatedAt: now}
	}
	rec.Messages = append(rec.Messages,
		domain.Message{Role: domain.RoleUser, Content: textx.Truncate(userText, s.maxMsgChars)},
		domain.Message{Role: domain.RoleAssistant, Content: textx.Truncate(assistantText, s.maxMsgChars)},
	)
	if over := len(rec.Messages) - s.maxMessages; over > 0 {
		rec.Messages = rec.Messages[over:]
	}
	rec.MessageCount++
	rec.UpdatedAt = now
	if rec.UserID == "" && userID != "" {
		rec.UserID = userID
		rec.UserRole = domain.RoleForUser(userID)
	}
	if rec.DeskName == "" {
		if deskName == "" {
			deskName = domain.DeskForUser(userID)
		}
		rec.DeskName = deskName
	}
	if err := s.write(ctx, *rec); err != nil {
		observability.ObserveSessionOp("append", false)
		slog.Warn("session append dropped (write)",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return
	}
	observability.ObserveSessionOp("append", true)
}

// Get returns the full session record, nil when absent. Not part of the
// store port; the gateway uses it to echo desk metadata.
func (s *Store) Get(ctx context.Context, sessionID string) *domain.Session {
	rec, err := s.read(ctx, sessionID)
	if err != nil {
		slog.Warn("session get failed",
			slog.String("session_id", sessionID), slog.Any("error", err))
		return nil
	}
	return rec
}

func (s *Store) read(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("op=session.read: %w", err)
	}
	var rec domain.Session
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("op=session.read: %w: %v", domain.ErrSchemaInvalid, err)
	}
	return &rec, nil
}

func (s *Store) write(ctx context.Context, rec domain.Session) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("op=session.write: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(rec.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=session.write: %w", err)
	}
	return nil
}
