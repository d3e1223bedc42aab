package usecase_test

import (
	"sync"
	"time"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// fakeAI scripts ChatJSON and Chat responses and records the last call.
type fakeAI struct {
	mu         sync.Mutex
	jsonResp   string
	jsonErr    error
	embedErr   error
	chatFn     func(call int, model, system, user string) (string, error)
	lastModel  string
	lastSystem string
	lastPrompt string
	lastMax    int
	jsonCalls  int
	chatCalls  int
	embedCalls int
}

func (f *fakeAI) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeAI) ChatJSON(_ domain.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsonCalls++
	f.lastModel, f.lastSystem, f.lastPrompt, f.lastMax = model, systemPrompt, userPrompt, maxTokens
	return f.jsonResp, f.jsonErr
}

func (f *fakeAI) Chat(_ domain.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	f.lastModel, f.lastSystem, f.lastPrompt, f.lastMax = model, systemPrompt, userPrompt, maxTokens
	if f.chatFn != nil {
		return f.chatFn(f.chatCalls, model, systemPrompt, userPrompt)
	}
	return "chat response", nil
}

// stubRegistry serves a fixed registration list.
type stubRegistry struct {
	regs []domain.WorkerRegistration
}

func (s stubRegistry) Register(domain.Context, domain.WorkerRegistration) {}
func (s stubRegistry) Deregister(domain.Context, string)                 {}
func (s stubRegistry) Discover(domain.Context, string) *domain.WorkerRegistration {
	return nil
}
func (s stubRegistry) ListAll(domain.Context) []domain.WorkerRegistration { return s.regs }
func (s stubRegistry) Resolve(_ domain.Context, _ string, fallbackURL string) string {
	return fallbackURL
}

func registrations(ids ...string) []domain.WorkerRegistration {
	regs := make([]domain.WorkerRegistration, 0, len(ids))
	for _, id := range ids {
		regs = append(regs, domain.WorkerRegistration{
			AgentID:  id,
			Endpoint: "http://" + id + ":8000",
			Status:   domain.StatusHealthy,
		})
	}
	return regs
}

// stubCaller answers fan-out calls from a fixed result map and records every
// CallAll invocation.
type stubCaller struct {
	mu         sync.Mutex
	results    map[string]string
	calls      [][]string
	gotQuery   string
	gotTimeout time.Duration
}

func (s *stubCaller) Call(_ domain.Context, _, _ string, _ time.Duration, _ string) string {
	return ""
}

func (s *stubCaller) CallAll(_ domain.Context, agentIDs []string, query string, timeout time.Duration) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string(nil), agentIDs...))
	s.gotQuery = query
	s.gotTimeout = timeout
	out := make(map[string]string, len(agentIDs))
	for _, id := range agentIDs {
		text, ok := s.results[id]
		if !ok {
			text = "stub result for " + id
		}
		out[id] = text
	}
	return out
}

// stubRetriever serves fixed chunks; panicMsg simulates a crashing backend.
type stubRetriever struct {
	mu       sync.Mutex
	chunks   []domain.RetrievedChunk
	panicMsg string
	gotQuery string
	gotK     int
	calls    int
}

func (s *stubRetriever) Retrieve(_ domain.Context, query string, k int) []domain.RetrievedChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.calls++
	s.gotQuery = query
	s.gotK = k
	return s.chunks
}

func (s *stubRetriever) AddTexts(domain.Context, []string, []map[string]string) error {
	return nil
}

func (s *stubRetriever) Count(domain.Context) int { return len(s.chunks) }
