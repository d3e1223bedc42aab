// Package app wires application components and startup helpers.
package app

import (
	"context"
	"log/slog"

	qdrantcli "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/ragseed"
)

// embeddingDim matches the text-embedding-3-small output size.
const embeddingDim = 1536

// EnsureKnowledgeBase creates the knowledge collection when missing and
// seeds the built-in AMPS/KDB reference corpus through the retriever.
// Failures are logged, not fatal: the pipeline degrades to empty context
// when the collection is unavailable.
func EnsureKnowledgeBase(ctx context.Context, qcli *qdrantcli.Client, collection string, retr domain.Retriever) {
	if qcli == nil {
		return
	}
	if err := qcli.EnsureCollection(ctx, collection, embeddingDim, "Cosine"); err != nil {
		slog.Warn("qdrant ensure collection failed",
			slog.String("collection", collection), slog.Any("error", err))
	}
	if retr == nil {
		return
	}
	if n := retr.Count(ctx); n > 0 {
		slog.Info("knowledge base already populated",
			slog.String("collection", collection), slog.Int("chunks", n))
		return
	}
	if err := ragseed.SeedDefault(ctx, retr); err != nil {
		slog.Warn("knowledge base seeding failed", slog.Any("error", err))
	}
}
