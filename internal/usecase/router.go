package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/ai"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// FallbackAgent receives the query when routing fails or selects nothing.
const FallbackAgent = "kdb-agent"

const routerMaxTokens = 256

// routerAgentOrder fixes the catalogue rendering order so the routing prompt
// is stable across runs.
var routerAgentOrder = []string{
	"kdb-agent",
	"amps-agent",
	"portfolio-agent",
	"cds-agent",
	"etf-agent",
	"risk-pnl-agent",
	"financial-orchestrator",
}

// agentDescriptions is the curated routing catalogue. Registry capability
// tags are too short to route on, so live ids are intersected with this
// table and these descriptions are what the router model sees.
var agentDescriptions = map[string]string{
	"kdb-agent":         "Historical Bond RFQ analytics: trader rankings, hit rates, spreads, desk performance (HY/IG/EM/RATES), 6-month history",
	"amps-agent":        "Live real-time AMPS data (State-of-World): current orders, live positions, market quotes, intraday P&L, portfolio NAV (portfolio_nav topic), CDS spreads tick-by-tick (cds_spreads topic), ETF NAV and flows (etf_nav topic), VaR/DV01/CS01 risk metrics (risk_metrics topic). Use for 'ahora mismo', 'en tiempo real', 'actual', 'live', 'current' queries.",
	"portfolio-agent":   "Portfolio holdings and exposure: positions, weights, concentration, cost basis, duration by portfolio (HY_MAIN, IG_CORE, EM_BLEND, RATES_GOV, MULTI_STRAT)",
	"cds-agent":         "Credit Default Swap market data: CDS spreads by tenor (1/3/5/7/10y), term structures, credit curve screener for 50 entities",
	"etf-agent":         "ETF analytics: NAV, AUM, creation/redemption flows, basket composition, premium/discount for HY/IG/EM/RATES ETFs (HYG, LQD, JNK, etc.)",
	"risk-pnl-agent":    "Cross-cutting risk and P&L: VaR, DV01, CS01 computed from live portfolio positions + market spreads; P&L attribution by desk/trader",
	"financial-orchestrator": "Multi-source financial synthesis: combines KDB historical + AMPS live data for complex queries needing both sources",
}

const routerSystem = `You are a query router for a financial data platform.
Your ONLY job is to select which specialist agents should handle a query.
Output valid JSON only — no explanation, no markdown, no other text.`

const routerPromptTemplate = `Available agents:
%s

User query: "%s"

Rules:
- Select ONLY agents whose data is relevant to the query
- Use "parallel" when agents answer independent sub-questions simultaneously
- Use "sequential" ONLY for risk-pnl-agent (it needs portfolio + market data first)
- Default to kdb-agent for general bond/trader/desk questions
- For VaR, DV01, CS01, P&L attribution in real-time → include amps-agent (risk_metrics topic)
- For portfolio NAV/exposure in real-time → include amps-agent (portfolio_nav topic)
- For CDS spreads live/tick data → include amps-agent (cds_spreads topic)
- For ETF NAV/flows live → include amps-agent (etf_nav topic)
- For live/current/today/'ahora mismo'/'en tiempo real'/'actual' data → include amps-agent
- For historical analytics, rankings, 6-month trends → include kdb-agent

Respond with JSON only:
{"agents": ["agent-id-1"], "strategy": "parallel", "reasoning": "one sentence why"}`

// ModelRouter decides which workers handle a financial query with a single
// deterministic completion call.
type ModelRouter struct {
	AI       domain.AIClient
	Registry domain.Registry
	Model    string
}

// NewModelRouter constructs a ModelRouter.
func NewModelRouter(aiClient domain.AIClient, reg domain.Registry, model string) ModelRouter {
	return ModelRouter{AI: aiClient, Registry: reg, Model: model}
}

// Route selects worker ids and a fan-out strategy for the query. It never
// returns an error: any failure degrades to the fallback decision so a broken
// router slows nothing down and breaks nothing.
func (r ModelRouter) Route(ctx domain.Context, query string) domain.RouterDecision {
	catalogue := r.catalogue(ctx)
	prompt := fmt.Sprintf(routerPromptTemplate, renderAgentList(catalogue), query)

	raw, err := r.AI.ChatJSON(ctx, r.Model, routerSystem, prompt, routerMaxTokens)
	if err != nil {
		return r.fallback(fmt.Errorf("op=router.complete: %w", err))
	}

	var out struct {
		Agents    []string `json:"agents"`
		Strategy  string   `json:"strategy"`
		Reasoning string   `json:"reasoning"`
	}
	cleaned := ai.CleanJSONResponse(raw)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return r.fallback(fmt.Errorf("op=router.parse: %w", err))
	}

	known := make(map[string]bool, len(catalogue))
	for _, id := range catalogue {
		known[id] = true
	}
	agents := make([]string, 0, len(out.Agents))
	for _, id := range out.Agents {
		if known[id] {
			agents = append(agents, id)
		}
	}
	if len(agents) == 0 {
		agents = []string{FallbackAgent}
	}

	strategy := out.Strategy
	if strategy != domain.StrategySequential {
		strategy = domain.StrategyParallel
	}

	slog.Info("router decision",
		slog.Any("agents", agents),
		slog.String("strategy", strategy),
		slog.String("reasoning", out.Reasoning))
	observability.ObserveRouterDecision(strategy, false)
	return domain.RouterDecision{Agents: agents, Strategy: strategy, Reasoning: out.Reasoning}
}

// catalogue intersects live registry ids with the curated table, in canonical
// order. An empty or useless registry yields the whole table.
func (r ModelRouter) catalogue(ctx domain.Context) []string {
	live := r.Registry.ListAll(ctx)
	if len(live) == 0 {
		return routerAgentOrder
	}
	liveSet := make(map[string]bool, len(live))
	for _, reg := range live {
		liveSet[reg.AgentID] = true
	}
	ids := make([]string, 0, len(routerAgentOrder))
	for _, id := range routerAgentOrder {
		if liveSet[id] {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return routerAgentOrder
	}
	return ids
}

func renderAgentList(ids []string) string {
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("- %q: %s", id, agentDescriptions[id]))
	}
	return strings.Join(lines, "\n")
}

func (r ModelRouter) fallback(err error) domain.RouterDecision {
	slog.Warn("router fallback",
		slog.String("agent", FallbackAgent),
		slog.Any("error", err))
	observability.ObserveRouterDecision(domain.StrategyParallel, true)
	return domain.RouterDecision{
		Agents:       []string{FallbackAgent},
		Strategy:     domain.StrategyParallel,
		Reasoning:    "fallback",
		FallbackUsed: true,
	}
}
