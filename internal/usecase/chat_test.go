package usecase_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/usecase"
)

// fakeStore records session operations and serves scripted history.
type fakeStore struct {
	mu          sync.Mutex
	createdID   string
	createCalls int
	createUser  string
	createDesk  string
	history     []domain.Message
	appends     [][5]string
}

func (f *fakeStore) Create(_ domain.Context, userID, deskName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.createUser, f.createDesk = userID, deskName
	if f.createdID == "" {
		f.createdID = "sess-0123456789abcdef"
	}
	return f.createdID
}

func (f *fakeStore) Load(_ domain.Context, _ string) []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history
}

func (f *fakeStore) Append(_ domain.Context, sessionID, userText, assistantText, userID, deskName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, [5]string{sessionID, userText, assistantText, userID, deskName})
}

// syncPool runs everything inline so persistence is observable right after
// HandleTurn returns.
type syncPool struct {
	doErr      error
	rejectBG   bool
	submitted  int
	doCalls    int
	lastDoCtx  context.Context
	submitLock sync.Mutex
}

func (p *syncPool) Do(ctx context.Context, fn func(context.Context)) error {
	p.doCalls++
	p.lastDoCtx = ctx
	if p.doErr != nil {
		return p.doErr
	}
	fn(ctx)
	return nil
}

func (p *syncPool) TrySubmit(fn func(context.Context)) bool {
	p.submitLock.Lock()
	defer p.submitLock.Unlock()
	if p.rejectBG {
		return false
	}
	p.submitted++
	fn(context.Background())
	return true
}

type recordingArchive struct {
	mu    sync.Mutex
	err   error
	saved []domain.TurnRecord
}

func (a *recordingArchive) Save(_ domain.Context, turn domain.TurnRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, turn)
	return nil
}

type recordingAudit struct {
	mu        sync.Mutex
	err       error
	published []domain.TurnRecord
}

func (a *recordingAudit) PublishTurn(_ domain.Context, turn domain.TurnRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.published = append(a.published, turn)
	return nil
}

func newChatService(store *fakeStore, pool *syncPool, caller *stubCaller, archive *recordingArchive, audit *recordingAudit) usecase.ChatService {
	aic := &fakeAI{jsonResp: `{"agents": ["kdb-agent"], "strategy": "parallel", "reasoning": "history"}`}
	p := newPipeline(&stubRetriever{}, aic, caller, stubRegistry{})
	var arch domain.TurnArchive
	if archive != nil {
		arch = archive
	}
	var aud domain.AuditPublisher
	if audit != nil {
		aud = audit
	}
	return usecase.NewChatService(store, p, pool, arch, aud)
}

func TestChatService_HandleTurn_NewSession(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	caller := &stubCaller{results: map[string]string{"kdb-agent": "TRADER7 leads the desk."}}
	svc := newChatService(store, &syncPool{}, caller, nil, nil)

	res := svc.HandleTurn(context.Background(), usecase.TurnInput{
		UserID:  "T_HY_TRADER7",
		Message: "who is the best trader on the HY desk",
	})

	assert.Equal(t, "sess-0123456789abcdef", res.SessionID)
	assert.Equal(t, "TRADER7 leads the desk.", res.Response)
	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, "T_HY_TRADER7", store.createUser)
	assert.Equal(t, "HY", store.createDesk)
}

func TestChatService_HandleTurn_KeepsExistingSession(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	caller := &stubCaller{}
	svc := newChatService(store, &syncPool{}, caller, nil, nil)

	res := svc.HandleTurn(context.Background(), usecase.TurnInput{
		SessionID: "sess-feedfacecafebeef",
		UserID:    "T_IG_TRADER2",
		Message:   "bond spreads today",
	})

	assert.Equal(t, "sess-feedfacecafebeef", res.SessionID)
	assert.Equal(t, 0, store.createCalls)
}

func TestChatService_HandleTurn_EnrichesWithHistory(t *testing.T) {
	t.Parallel()
	store := &fakeStore{history: []domain.Message{
		{Role: domain.RoleUser, Content: "show me HY spreads"},
		{Role: domain.RoleAssistant, Content: "HY spreads average 310bps."},
	}}
	caller := &stubCaller{}
	svc := newChatService(store, &syncPool{}, caller, nil, nil)

	svc.HandleTurn(context.Background(), usecase.TurnInput{
		SessionID: "sess-feedfacecafebeef",
		UserID:    "T_HY_TRADER7",
		Message:   "and who traded the most notional",
	})

	require.Len(t, caller.calls, 1)
	wantPrefix := "[Conversation History — previous turns in this session]\n" +
		"Trader: show me HY spreads\n" +
		"System: HY spreads average 310bps.\n\n" +
		"[Current Query]\nand who traded the most notional"
	assert.True(t, strings.HasPrefix(caller.gotQuery, wantPrefix),
		"fan-out query must start with the rendered history block, got: %q", caller.gotQuery)
}

func TestChatService_HandleTurn_PersistsTurn(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	caller := &stubCaller{results: map[string]string{"kdb-agent": "desk answer"}}
	archive := &recordingArchive{}
	audit := &recordingAudit{}
	svc := newChatService(store, &syncPool{}, caller, archive, audit)

	res := svc.HandleTurn(context.Background(), usecase.TurnInput{
		UserID:  "T_EM_TRADER1",
		Message: "best trader on the EM desk",
	})

	require.Len(t, store.appends, 1)
	assert.Equal(t, res.SessionID, store.appends[0][0])
	assert.Equal(t, "best trader on the EM desk", store.appends[0][1])
	assert.Equal(t, "desk answer", store.appends[0][2])
	assert.Equal(t, "T_EM_TRADER1", store.appends[0][3])
	assert.Equal(t, "EM", store.appends[0][4])

	require.Len(t, archive.saved, 1)
	turn := archive.saved[0]
	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, res.SessionID, turn.SessionID)
	assert.Equal(t, "best trader on the EM desk", turn.Query)
	assert.Equal(t, "desk answer", turn.Response)
	assert.Equal(t, []string{"kdb-agent"}, turn.Agents)
	assert.Equal(t, domain.StrategyParallel, turn.Strategy)
	assert.False(t, turn.FallbackUsed)
	assert.GreaterOrEqual(t, turn.DurationMS, int64(0))
	assert.WithinDuration(t, time.Now().UTC(), turn.CreatedAt, 5*time.Second)

	require.Len(t, audit.published, 1)
	assert.Equal(t, turn.ID, audit.published[0].ID)
}

func TestChatService_HandleTurn_SinksFailIndependently(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	caller := &stubCaller{}
	archive := &recordingArchive{err: assert.AnError}
	audit := &recordingAudit{}
	svc := newChatService(store, &syncPool{}, caller, archive, audit)

	svc.HandleTurn(context.Background(), usecase.TurnInput{
		UserID:  "ops-user",
		Message: "best trader on the HY desk",
	})

	// Archive failed, session append and audit still happened.
	require.Len(t, store.appends, 1)
	require.Len(t, audit.published, 1)
}

func TestChatService_HandleTurn_NilSinks(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	svc := newChatService(store, &syncPool{}, &stubCaller{}, nil, nil)

	res := svc.HandleTurn(context.Background(), usecase.TurnInput{
		UserID:  "anon",
		Message: "best trader on the HY desk",
	})

	assert.NotEmpty(t, res.Response)
	require.Len(t, store.appends, 1)
}

func TestChatService_HandleTurn_PoolRejection(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	archive := &recordingArchive{}
	svc := newChatService(store, &syncPool{doErr: context.Canceled}, &stubCaller{}, archive, nil)

	res := svc.HandleTurn(context.Background(), usecase.TurnInput{
		UserID:  "T_HY_TRADER7",
		Message: "best trader on the HY desk",
	})

	assert.Equal(t, "Error: the request was cancelled before processing began.", res.Response)
	assert.Empty(t, store.appends)
	assert.Empty(t, archive.saved)
}

func TestChatService_HandleTurn_QueueFullStillResponds(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	caller := &stubCaller{results: map[string]string{"kdb-agent": "desk answer"}}
	svc := newChatService(store, &syncPool{rejectBG: true}, caller, nil, nil)

	res := svc.HandleTurn(context.Background(), usecase.TurnInput{
		UserID:  "T_HY_TRADER7",
		Message: "best trader on the HY desk",
	})

	assert.Equal(t, "desk answer", res.Response)
	assert.Empty(t, store.appends)
}

func TestChatService_ResolveSession(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	svc := newChatService(store, &syncPool{}, &stubCaller{}, nil, nil)

	existing := svc.ResolveSession(context.Background(), "sess-feedfacecafebeef", "u", "")
	assert.Equal(t, "sess-feedfacecafebeef", existing)
	assert.Equal(t, 0, store.createCalls)

	minted := svc.ResolveSession(context.Background(), "", "T_RATES_TRADER3", "")
	assert.Equal(t, "sess-0123456789abcdef", minted)
	assert.Equal(t, "RATES", store.createDesk)
}
