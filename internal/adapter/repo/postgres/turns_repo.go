package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// TurnRepo persists completed chat turns using a minimal pgx pool.
type TurnRepo struct{ Pool PgxPool }

// PgxPool is a minimal subset of pgxpool used by the repo for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ domain.TurnArchive = (*TurnRepo)(nil)

// NewTurnRepo constructs a TurnRepo with the given pool.
func NewTurnRepo(p PgxPool) *TurnRepo { return &TurnRepo{Pool: p} }

// EnsureSchema creates the chat_turns table when it does not exist yet.
// Called once at startup, mirroring the vector collection bootstrap.
func (r *TurnRepo) EnsureSchema(ctx domain.Context) error {
	q := `CREATE TABLE IF NOT EXISTS chat_turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		desk_name TEXT NOT NULL DEFAULT '',
		query TEXT NOT NULL,
		response TEXT NOT NULL,
		agents TEXT[] NOT NULL DEFAULT '{}',
		strategy TEXT NOT NULL DEFAULT '',
		fallback_used BOOLEAN NOT NULL DEFAULT FALSE,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_chat_turns_session ON chat_turns (session_id);
	CREATE INDEX IF NOT EXISTS idx_chat_turns_created ON chat_turns (created_at)`
	if _, err := r.Pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("op=turns.ensure_schema: %w", err)
	}
	return nil
}

// Save inserts one archived turn.
func (r *TurnRepo) Save(ctx domain.Context, turn domain.TurnRecord) error {
	tracer := otel.Tracer("repo.turns")
	ctx, span := tracer.Start(ctx, "turns.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "chat_turns"),
	)

	id := turn.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	agents := turn.Agents
	if agents == nil {
		agents = []string{}
	}

	q := `INSERT INTO chat_turns (id, session_id, user_id, desk_name, query, response, agents, strategy, fallback_used, duration_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.Pool.Exec(ctx, q, id, turn.SessionID, turn.UserID, turn.DeskName,
		turn.Query, turn.Response, agents, turn.Strategy, turn.FallbackUsed,
		turn.DurationMS, createdAt)
	if err != nil {
		return fmt.Errorf("op=turns.save: %w", err)
	}
	return nil
}

// ListBySession loads the archived turns of one session, oldest first.
func (r *TurnRepo) ListBySession(ctx domain.Context, sessionID string, limit int) ([]domain.TurnRecord, error) {
	tracer := otel.Tracer("repo.turns")
	ctx, span := tracer.Start(ctx, "turns.ListBySession")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id, session_id, user_id, desk_name, query, response, agents, strategy, fallback_used, duration_ms, created_at
		FROM chat_turns WHERE session_id=$1 ORDER BY created_at ASC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=turns.list: %w", err)
	}
	defer rows.Close()

	var out []domain.TurnRecord
	for rows.Next() {
		var t domain.TurnRecord
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserID, &t.DeskName, &t.Query,
			&t.Response, &t.Agents, &t.Strategy, &t.FallbackUsed, &t.DurationMS, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=turns.list scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=turns.list rows: %w", err)
	}
	return out, nil
}
