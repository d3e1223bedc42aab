package agents

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// answerMaxTokens bounds a specialist completion.
const answerMaxTokens = 1024

// LLMHandler answers queries with a single chat completion framed by the
// card's charter. Specialist data backends (KDB, AMPS, market data stores)
// plug in behind the same agentserver.Handler interface when deployed; this
// handler is the shell every worker ships with.
type LLMHandler struct {
	ai     domain.AIClient
	model  string
	card   Card
	prompt string
}

// NewLLMHandler builds the handler for one card.
func NewLLMHandler(ai domain.AIClient, model string, card Card) *LLMHandler {
	return &LLMHandler{ai: ai, model: model, card: card, prompt: charterPrompt(card)}
}

// Handle runs one completion. Empty queries and empty completions are
// errors; the agent server converts them into failed task results.
func (h *LLMHandler) Handle(ctx domain.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("op=agents.handle agent=%s: %w: empty query", h.card.AgentID, domain.ErrInvalidArgument)
	}
	out, err := h.ai.Chat(ctx, h.model, h.prompt, query, answerMaxTokens)
	if err != nil {
		return "", fmt.Errorf("op=agents.handle agent=%s: %w", h.card.AgentID, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("op=agents.handle agent=%s: %w: empty completion", h.card.AgentID, domain.ErrSchemaInvalid)
	}
	return out, nil
}

// charterPrompt frames the model as the card's specialist.
func charterPrompt(card Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. %s\n\n", card.Name, card.Description)
	b.WriteString("Your declared skills:\n")
	for _, s := range card.Skills {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	fmt.Fprintf(&b, "\nDesks served: %s.\n\n", strings.Join(card.DeskNames, ", "))
	b.WriteString("Answer the analyst's question within this charter. Be concise and structured.\n")
	b.WriteString("State clearly when an answer would need live data you cannot reach; never invent numbers.\n")
	b.WriteString("If the question falls outside your charter, name the specialist that covers it.")
	return b.String()
}
