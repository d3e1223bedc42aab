package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/agentic-ai-dispatcher/pkg/textx"
)

// MergeResults combines per-worker texts into one markdown analysis block.
// Section order follows the ids slice, so the output is stable for a given
// router decision. Error strings from failed workers are merged like any
// other text; partial results still produce a useful report.
func MergeResults(query string, ids []string, results map[string]string) string {
	sections := make([]string, 0, len(ids))
	for _, id := range ids {
		text, ok := results[id]
		if !ok {
			continue
		}
		sections = append(sections, fmt.Sprintf("## %s\n\n%s", textx.TitleWords(id), text))
	}

	var b strings.Builder
	b.WriteString("# Multi-Source Financial Analysis\n\n")
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))
	return b.String()
}
