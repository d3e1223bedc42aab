package usecase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/usecase"
)

func TestMergeResults_TwoWorkers(t *testing.T) {
	t.Parallel()
	got := usecase.MergeResults(
		"ETF flows and exposure",
		[]string{"etf-agent", "portfolio-agent"},
		map[string]string{
			"etf-agent":       "HYG saw $120m of inflows.",
			"portfolio-agent": "HY_MAIN is 40% concentrated in energy.",
		},
	)

	want := "# Multi-Source Financial Analysis\n\n" +
		"Query: ETF flows and exposure\n\n" +
		"## Etf Agent\n\nHYG saw $120m of inflows.\n\n---\n\n" +
		"## Portfolio Agent\n\nHY_MAIN is 40% concentrated in energy."
	assert.Equal(t, want, got)
}

func TestMergeResults_OrderFollowsIDList(t *testing.T) {
	t.Parallel()
	results := map[string]string{
		"kdb-agent":  "historical",
		"amps-agent": "live",
	}

	got := usecase.MergeResults("q", []string{"amps-agent", "kdb-agent"}, results)
	ampsIdx := strings.Index(got, "## Amps Agent")
	kdbIdx := strings.Index(got, "## Kdb Agent")
	assert.NotEqual(t, -1, ampsIdx)
	assert.NotEqual(t, -1, kdbIdx)
	assert.Less(t, ampsIdx, kdbIdx)
}

func TestMergeResults_SkipsMissingIDs(t *testing.T) {
	t.Parallel()
	got := usecase.MergeResults("q", []string{"kdb-agent", "etf-agent"}, map[string]string{
		"kdb-agent": "only one answered",
	})

	assert.Contains(t, got, "## Kdb Agent")
	assert.NotContains(t, got, "## Etf Agent")
	assert.NotContains(t, got, "---")
}

func TestMergeResults_HyphenatedIDTitleCased(t *testing.T) {
	t.Parallel()
	got := usecase.MergeResults("q", []string{"risk-pnl-agent"}, map[string]string{
		"risk-pnl-agent": "VaR is 2.1m",
	})

	assert.Contains(t, got, "## Risk Pnl Agent\n\nVaR is 2.1m")
}
