// Command ragseed pushes the bundled knowledge corpus, plus any YAML corpus
// files given as arguments, into the Qdrant knowledge base.
//
// Usage:
//
//	ragseed [-skip-default] [corpus.yaml ...]
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/ai"
	realai "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/ai/real"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	qdrantcli "github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/app"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/config"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/ragseed"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/usecase"
)

func main() {
	skipDefault := flag.Bool("skip-default", false, "skip the bundled AMPS/KDB corpus")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	observability.SetupLogger(cfg)

	ctx := context.Background()
	qcli := qdrantcli.New(cfg.QdrantURL, cfg.QdrantAPIKey)
	aiClient := ai.NewEmbedCache(realai.New(cfg), cfg.EmbedCacheSize)
	retr := usecase.NewKnowledgeRetriever(qcli, aiClient, cfg.QdrantCollection)

	app.EnsureKnowledgeBase(ctx, qcli, cfg.QdrantCollection, nil)

	if !*skipDefault {
		if err := ragseed.SeedDefault(ctx, retr); err != nil {
			slog.Error("bundled corpus seed failed", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("bundled corpus seeded", slog.Int("docs", len(ragseed.DefaultCorpus())))
	}
	for _, path := range flag.Args() {
		if err := ragseed.SeedFile(ctx, retr, path); err != nil {
			slog.Error("corpus file seed failed", slog.String("path", path), slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("corpus file seeded", slog.String("path", path))
	}

	slog.Info("knowledge base ready", slog.Int("chunks", retr.Count(ctx)))
}
