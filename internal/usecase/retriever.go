package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/vector/qdrant"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// KnowledgeRetriever implements domain.Retriever over Qdrant similarity
// search with API-served embeddings.
type KnowledgeRetriever struct {
	Qdrant     *qdrant.Client
	AI         domain.AIClient
	Collection string
}

// NewKnowledgeRetriever constructs a KnowledgeRetriever.
func NewKnowledgeRetriever(qc *qdrant.Client, aiClient domain.AIClient, collection string) *KnowledgeRetriever {
	return &KnowledgeRetriever{Qdrant: qc, AI: aiClient, Collection: collection}
}

var _ domain.Retriever = (*KnowledgeRetriever)(nil)

// Retrieve embeds the query and returns up to k nearest chunks ordered by
// ascending distance. Retrieval is advisory context for the pipeline, so any
// fault degrades to an empty result instead of an error.
func (r *KnowledgeRetriever) Retrieve(ctx domain.Context, query string, k int) []domain.RetrievedChunk {
	if k <= 0 {
		return nil
	}
	vectors, err := r.AI.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		slog.Warn("retrieval embed failed, continuing without context", slog.Any("error", err))
		observability.ObserveRetrieval(false)
		return nil
	}

	points, err := r.Qdrant.Search(ctx, r.Collection, vectors[0], k)
	if err != nil {
		slog.Warn("retrieval search failed, continuing without context", slog.Any("error", err))
		observability.ObserveRetrieval(false)
		return nil
	}

	chunks := make([]domain.RetrievedChunk, 0, len(points))
	for _, pt := range points {
		text, _ := pt.Payload["text"].(string)
		if text == "" {
			continue
		}
		source, _ := pt.Payload["source"].(string)
		chunks = append(chunks, domain.RetrievedChunk{
			Text:     text,
			Source:   source,
			Distance: scoreToDistance(pt.Score),
		})
	}
	observability.ObserveRetrieval(true)
	return chunks
}

// AddTexts embeds and upserts texts with their metadata. Point ids are
// content hashes, so re-ingesting the same corpus overwrites in place
// instead of duplicating.
func (r *KnowledgeRetriever) AddTexts(ctx domain.Context, texts []string, metadatas []map[string]string) error {
	if len(texts) == 0 {
		return nil
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return fmt.Errorf("op=retriever.add_texts: %w: %d texts with %d metadatas",
			domain.ErrInvalidArgument, len(texts), len(metadatas))
	}

	vectors, err := r.AI.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("op=retriever.add_texts embed: %w", err)
	}

	ids := make([]any, len(texts))
	payloads := make([]map[string]any, len(texts))
	for i, text := range texts {
		ids[i] = r.pointID(text)
		payload := map[string]any{"text": text}
		if metadatas != nil {
			for k, v := range metadatas[i] {
				payload[k] = v
			}
		}
		payloads[i] = payload
	}

	if err := r.Qdrant.UpsertPoints(ctx, r.Collection, vectors, payloads, ids); err != nil {
		return fmt.Errorf("op=retriever.add_texts upsert: %w", err)
	}
	return nil
}

// Count reports the number of indexed chunks, 0 on fault.
func (r *KnowledgeRetriever) Count(ctx domain.Context) int {
	n, err := r.Qdrant.CountPoints(ctx, r.Collection)
	if err != nil {
		slog.Warn("retrieval count failed", slog.Any("error", err))
		return 0
	}
	return n
}

// pointID derives a stable UUID-shaped id from the collection and chunk
// content. Qdrant only accepts unsigned ints or UUIDs as point ids.
func (r *KnowledgeRetriever) pointID(text string) string {
	sum := sha256.Sum256([]byte(r.Collection + ":" + text))
	hexd := hex.EncodeToString(sum[:16])
	return fmt.Sprintf("%s-%s-%s-%s-%s", hexd[0:8], hexd[8:12], hexd[12:16], hexd[16:20], hexd[20:32])
}

// scoreToDistance converts a cosine similarity score into the [0,1] distance
// callers sort and threshold on.
func scoreToDistance(score float64) float64 {
	d := 1 - score
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}
