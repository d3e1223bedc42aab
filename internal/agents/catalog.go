// Package agents carries the specialist worker catalogue and the generic
// LLM-backed handler the deployable worker shell runs.
package agents

import (
	"fmt"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/a2a"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/agentserver"
)

// Card describes one specialist worker: identity, charter, advertised
// skills, and the desks it serves. Port is the conventional container port
// for the worker; the deploy environment may override the full endpoint.
type Card struct {
	AgentID     string
	Name        string
	Description string
	Port        int
	Skills      []a2a.AgentSkill
	DeskNames   []string
}

// Catalog returns the seven specialist cards in fan-out id order.
func Catalog() []Card {
	return catalog
}

// Lookup returns the card for id, false when the id is unknown.
func Lookup(id string) (Card, bool) {
	for _, c := range catalog {
		if c.AgentID == id {
			return c, true
		}
	}
	return Card{}, false
}

// ServerOptions shapes a card into worker server options, binding the
// deploy-time endpoint.
func ServerOptions(card Card, endpoint string) agentserver.Options {
	if endpoint == "" {
		endpoint = fmt.Sprintf("http://%s:%d", card.AgentID, card.Port)
	}
	return agentserver.Options{
		AgentID:     card.AgentID,
		Name:        card.Name,
		Description: card.Description,
		Endpoint:    endpoint,
		Skills:      card.Skills,
		DeskNames:   card.DeskNames,
	}
}

var allDesks = []string{"HY", "IG", "EM", "RATES"}

var catalog = []Card{
	{
		AgentID: "kdb-agent",
		Name:    "KDB Historical Data Agent",
		Description: "Specialist agent for Bond RFQ historical analytics. " +
			"Queries 6+ months of trading data across HY, IG, EM, and RATES desks. " +
			"Use for trader rankings, hit rates, spread analysis, and notional trends.",
		Port: 8001,
		Skills: []a2a.AgentSkill{
			{ID: "bond_analytics", Name: "Bond RFQ Analytics", Description: "Aggregated analytics over historical Bond RFQ records"},
			{ID: "trader_performance", Name: "Trader Performance", Description: "Hit rate, spread, and win/loss rankings per trader"},
			{ID: "rfq_history", Name: "RFQ History", Description: "Custom SQL queries over the bond_rfq table"},
		},
		DeskNames: allDesks,
	},
	{
		AgentID: "amps-agent",
		Name:    "AMPS Real-Time Data Agent",
		Description: "Specialist agent for live pub/sub data from AMPS (60East Technologies). " +
			"Queries current state-of-world: today's orders, live positions, market quotes. " +
			"Use for intraday, real-time, and 'right now' queries.",
		Port: 8002,
		Skills: []a2a.AgentSkill{
			{ID: "realtime_positions", Name: "Live Positions", Description: "Current open positions from AMPS SOW"},
			{ID: "live_orders", Name: "Live Orders", Description: "Today's active orders and intraday order flow"},
			{ID: "market_data", Name: "Market Data", Description: "Live bid/ask quotes and market-data topic"},
		},
		DeskNames: allDesks,
	},
	{
		AgentID: "portfolio-agent",
		Name:    "Portfolio Holdings Agent",
		Description: "Specialist agent for portfolio holdings and exposure analytics. " +
			"Covers 5 fixed income portfolios: HY_MAIN, IG_CORE, EM_BLEND, RATES_GOV, MULTI_STRAT. " +
			"Use for position weights, sector exposure, concentration analysis, and duration/spread profiles.",
		Port: 8003,
		Skills: []a2a.AgentSkill{
			{ID: "portfolio_holdings", Name: "Portfolio Holdings", Description: "Full position list with ISIN, issuer, market value, weight, duration, spread"},
			{ID: "portfolio_exposure", Name: "Portfolio Exposure", Description: "Sector-level aggregated exposure with market value weights"},
			{ID: "portfolio_concentration", Name: "Concentration Risk", Description: "Top N positions by market value, concentration % of NAV"},
		},
		DeskNames: []string{"HY", "IG", "EM", "RATES", "MULTI"},
	},
	{
		AgentID: "cds-agent",
		Name:    "CDS Market Data Agent",
		Description: "Specialist agent for Credit Default Swap market data. " +
			"Covers ~50 reference entities across HY, IG, and EM with 1/3/5/7/10y tenor spreads. " +
			"Use for CDS spread levels, term structure analysis, and credit screener.",
		Port: 8004,
		Skills: []a2a.AgentSkill{
			{ID: "cds_spreads", Name: "CDS Spreads", Description: "CDS spread levels for specific entities and tenors"},
			{ID: "cds_term_structure", Name: "CDS Term Structure", Description: "Full credit curve (1/3/5/7/10y) for a reference entity"},
			{ID: "cds_screener", Name: "CDS Screener", Description: "Filter entities by spread range, sector, or rating"},
		},
		DeskNames: []string{"HY", "IG", "EM"},
	},
	{
		AgentID: "etf-agent",
		Name:    "ETF Analytics Agent",
		Description: "Specialist agent for fixed income ETF analytics. " +
			"Covers 15 ETFs (HYG, JNK, LQD, EMB, TLT, AGG, and more). " +
			"Use for NAV, AUM, premium/discount, creation/redemption flows, and basket composition.",
		Port: 8005,
		Skills: []a2a.AgentSkill{
			{ID: "etf_nav_aum", Name: "ETF NAV and AUM", Description: "NAV, market price, premium/discount to NAV, assets under management"},
			{ID: "etf_flows", Name: "ETF Flows", Description: "Weekly creation/redemption flow history — inflows vs outflows"},
			{ID: "etf_basket", Name: "ETF Basket Composition", Description: "Top holdings by weight, sector and rating breakdown"},
		},
		DeskNames: allDesks,
	},
	{
		AgentID: "risk-pnl-agent",
		Name:    "Risk & P&L Agent",
		Description: "Cross-cutting risk and P&L analytics agent. " +
			"Computes VaR (95%/99%), DV01, CS01 from live portfolio positions + historical spreads. " +
			"Provides P&L attribution by desk and trader. " +
			"Internally calls portfolio-agent and kdb-agent for data, then computes metrics in-process.",
		Port: 8006,
		Skills: []a2a.AgentSkill{
			{ID: "var_computation", Name: "VaR Computation", Description: "Historical simulation VaR at 95% and 99% confidence, 1-day horizon"},
			{ID: "dv01_cs01", Name: "DV01 and CS01", Description: "Dollar value of 1bp rate move (DV01) and spread move (CS01) per portfolio"},
			{ID: "pnl_attribution", Name: "P&L Attribution", Description: "P&L breakdown by desk and trader from historical RFQ data"},
		},
		DeskNames: allDesks,
	},
	{
		AgentID: "financial-orchestrator",
		Name:    "Financial Orchestrator",
		Description: "Senior Bond Trading Analyst. Coordinates KDB historical data, " +
			"AMPS real-time data, and domain knowledge to answer complex " +
			"financial queries across HY, IG, EM, and RATES desks.",
		Port: 8007,
		Skills: []a2a.AgentSkill{
			{ID: "financial_analysis", Name: "Financial Analysis", Description: "Multi-source bond trading analytics combining historical and live data"},
			{ID: "bond_trading", Name: "Bond Trading Insights", Description: "Trader performance, desk strategy, and market context"},
			{ID: "multi_source", Name: "Multi-Source Synthesis", Description: "Combines KDB, AMPS, and knowledge base into unified analysis"},
		},
		DeskNames: allDesks,
	},
}
