package agents_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/a2a"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/agentserver"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/agents"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedChat struct {
	mu     sync.Mutex
	calls  int
	model  string
	system string
	user   string
	reply  string
	err    error
}

func (s *scriptedChat) Embed(_ domain.Context, _ []string) ([][]float32, error) {
	return nil, errors.New("embed not used here")
}

func (s *scriptedChat) ChatJSON(_ domain.Context, _, _, _ string, _ int) (string, error) {
	return "", errors.New("chatjson not used here")
}

func (s *scriptedChat) Chat(_ domain.Context, model, system, user string, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.model, s.system, s.user = model, system, user
	return s.reply, s.err
}

type noopRegistry struct{}

func (noopRegistry) Register(domain.Context, domain.WorkerRegistration) {}
func (noopRegistry) Deregister(domain.Context, string)                  {}
func (noopRegistry) Discover(domain.Context, string) *domain.WorkerRegistration {
	return nil
}
func (noopRegistry) ListAll(domain.Context) []domain.WorkerRegistration { return nil }
func (noopRegistry) Resolve(_ domain.Context, _ string, fallbackURL string) string {
	return fallbackURL
}

func TestLLMHandler_AnswersWithinCharter(t *testing.T) {
	t.Parallel()
	card, ok := agents.Lookup("kdb-agent")
	require.True(t, ok)
	ai := &scriptedChat{reply: "  Top HY trader by hit rate: T_HY_004 (71%).  "}

	h := agents.NewLLMHandler(ai, "test-model", card)
	out, err := h.Handle(t.Context(), "who is the best HY trader this quarter?")
	require.NoError(t, err)
	assert.Equal(t, "Top HY trader by hit rate: T_HY_004 (71%).", out)

	assert.Equal(t, "test-model", ai.model)
	assert.Equal(t, "who is the best HY trader this quarter?", ai.user)
	assert.Contains(t, ai.system, "KDB Historical Data Agent")
	assert.Contains(t, ai.system, "Trader Performance")
	assert.Contains(t, ai.system, "never invent numbers")
}

func TestLLMHandler_EmptyQuery(t *testing.T) {
	t.Parallel()
	card, _ := agents.Lookup("cds-agent")
	ai := &scriptedChat{reply: "unused"}

	h := agents.NewLLMHandler(ai, "test-model", card)
	_, err := h.Handle(t.Context(), "   ")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Zero(t, ai.calls, "the model must not be called for an empty query")
}

func TestLLMHandler_UpstreamFaultWrapped(t *testing.T) {
	t.Parallel()
	card, _ := agents.Lookup("portfolio-agent")
	ai := &scriptedChat{err: fmt.Errorf("completion: %w", domain.ErrUpstreamTimeout)}

	h := agents.NewLLMHandler(ai, "test-model", card)
	_, err := h.Handle(t.Context(), "sector exposure for HY_MAIN")
	require.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.Contains(t, err.Error(), "portfolio-agent")
}

func TestLLMHandler_EmptyCompletion(t *testing.T) {
	t.Parallel()
	card, _ := agents.Lookup("etf-agent")
	ai := &scriptedChat{reply: "   "}

	h := agents.NewLLMHandler(ai, "test-model", card)
	_, err := h.Handle(t.Context(), "HYG weekly flows")
	require.ErrorIs(t, err, domain.ErrSchemaInvalid)
}

func TestLLMHandler_ThroughWorkerShell(t *testing.T) {
	t.Parallel()
	card, ok := agents.Lookup("amps-agent")
	require.True(t, ok)
	ai := &scriptedChat{reply: "Live HY orders: 42 active."}

	srv := agentserver.New(agents.ServerOptions(card, ""), noopRegistry{}, agents.NewLLMHandler(ai, "test-model", card))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	task := a2a.NewTask("task-1", "sess-1", "How many HY orders are live right now?")
	body, err := json.Marshal(task)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/a2a", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res a2a.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, a2a.StatusCompleted, res.Status)
	assert.Equal(t, "Live HY orders: 42 active.", res.Text())
}

func TestWorkerShell_ServesCatalogCard(t *testing.T) {
	t.Parallel()
	card, ok := agents.Lookup("risk-pnl-agent")
	require.True(t, ok)

	srv := agentserver.New(agents.ServerOptions(card, ""), noopRegistry{}, agents.NewLLMHandler(&scriptedChat{}, "test-model", card))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/.well-known/agent.json")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "Risk & P&L Agent", out.Name)
	assert.Equal(t, "1.0.0", out.Version)
	assert.Equal(t, "http://risk-pnl-agent:8006", out.URL)
	require.Len(t, out.Skills, 3)
	assert.Equal(t, "var_computation", out.Skills[0].ID)
}
