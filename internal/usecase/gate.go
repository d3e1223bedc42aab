// Package usecase contains application business logic services.
package usecase

import "strings"

// Query routes produced by the keyword gate.
const (
	RouteGeneral   = "general"
	RouteFinancial = "financial"
)

// financialKeywords send a query down the financial branch on substring
// match. Grouped: instruments, live market data, AMPS, data sources,
// people and desks.
var financialKeywords = []string{
	"bond", "rfq", "trader", "trading", "desk", "hy", "ig", "em", "rates",
	"spread", "bps", "basis point", "hit rate", "notional", "yield", "coupon",
	"isin", "cusip", "position", "order",

	"live", "real-time", "realtime", "current price", "market data", "market-data",
	"bid", "ask", "mid price", "quote", "pnl", "mark to market", "mtm",
	"intraday", "today", "right now", "current position",

	"amps", "sow", "subscribe", "pub/sub", "topic", "publish", "state of world",

	"kdb", "historical", "history", "6 month", "last month", "last quarter",

	"best trader", "top trader", "strategy", "performance",
}

// ClassifyQuery lowercases the query and returns RouteFinancial when any
// domain keyword occurs as a substring, else RouteGeneral. Substring
// matching, not word matching: "orders" matches "order".
func ClassifyQuery(query string) string {
	q := strings.ToLower(query)
	for _, kw := range financialKeywords {
		if strings.Contains(q, kw) {
			return RouteFinancial
		}
	}
	return RouteGeneral
}
