package redpanda_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

func TestNewProducer_Validation(t *testing.T) {
	t.Parallel()

	t.Run("no brokers", func(t *testing.T) {
		t.Parallel()
		_, err := redpanda.NewProducer(nil, "chat.turns")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no seed brokers")
	})

	t.Run("empty topic", func(t *testing.T) {
		t.Parallel()
		_, err := redpanda.NewProducer([]string{"localhost:9092"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "topic")
	})
}

func TestTurnEvent_Shape(t *testing.T) {
	t.Parallel()

	event := redpanda.TurnEvent{
		EventType: redpanda.EventTurnCompleted,
		EmittedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Turn: domain.TurnRecord{
			ID:        "turn-1",
			SessionID: "sess-0011223344556677",
			DeskName:  "HY",
			Query:     "q",
			Response:  "a",
			Agents:    []string{"kdb-agent"},
			Strategy:  domain.StrategyParallel,
		},
	}

	b, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "chat.turn.completed", decoded["event_type"])

	turn, ok := decoded["turn"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sess-0011223344556677", turn["session_id"])
	assert.Equal(t, "parallel", turn["strategy"])
}
