package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/usecase"
)

func TestClassifyQuery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"bond analytics", "Who is the best bond trader on the HY desk?", usecase.RouteFinancial},
		{"rfq history", "show me RFQ hit rates for the last quarter", usecase.RouteFinancial},
		{"live amps data", "what are the current positions in AMPS right now", usecase.RouteFinancial},
		{"risk metrics", "intraday PnL attribution by desk", usecase.RouteFinancial},
		{"uppercase keyword", "TOP TRADER by notional", usecase.RouteFinancial},
		{"keyword inside word", "reorder the report sections", usecase.RouteFinancial},
		{"weather", "what is the weather like in London", usecase.RouteGeneral},
		{"cooking", "suggest a pasta recipe for dinner", usecase.RouteGeneral},
		{"empty", "", usecase.RouteGeneral},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, usecase.ClassifyQuery(tt.query))
		})
	}
}
