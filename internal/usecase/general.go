package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

const generalMaxTokens = 2048

const researcherSystem = `You are a precise research assistant.

Your job:
1. Receive a question or topic to investigate.
2. Ground your findings in the pre-retrieved knowledge base context when present.
3. Return a structured research report with:
   - Key facts found
   - Sources referenced
   - Gaps or uncertainties in the available information

Be factual. Do not invent information not found in the provided context.
If the context lacks information, say so clearly.`

const synthesizerSystem = `You are an expert communicator and analyst.

You receive:
- The original user question
- Research findings from a research agent

Your job:
1. Synthesize the findings into a clear, concise answer.
2. Structure the response with:
   - A direct answer to the question (1-2 sentences)
   - Supporting details (bullet points or short paragraphs)
   - Confidence level: HIGH / MEDIUM / LOW based on evidence quality
3. Use plain language. Avoid jargon unless the user's question uses it.
4. If the research found gaps, acknowledge them honestly.`

// numberedContext renders chunks as "[1] text" snippets joined by blank
// lines, the shape both branches splice into their prompts.
func numberedContext(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, c.Text))
	}
	return strings.Join(parts, "\n\n")
}

// runGeneral is the non-financial branch: one researcher pass grounded in
// the retrieved context, then one synthesizer pass over the findings.
func (p Pipeline) runGeneral(ctx domain.Context, st *PipelineState) {
	prompt := "Research the following question thoroughly: " + st.Validated
	if snippets := numberedContext(st.Chunks); snippets != "" {
		prompt += "\n\nPre-retrieved context from RAG (use as starting point):\n" + snippets
	}
	research, err := p.AI.Chat(ctx, p.ChatModel, researcherSystem, prompt, generalMaxTokens)
	if err != nil {
		st.Err = fmt.Sprintf("research pass failed: %v", err)
		return
	}
	st.Research = research

	synthesisPrompt := fmt.Sprintf(
		"Original question: %s\n\nResearch findings:\n%s\n\nPlease synthesize a clear, structured answer.",
		st.Validated, research)
	synthesis, err := p.AI.Chat(ctx, p.ChatModel, synthesizerSystem, synthesisPrompt, generalMaxTokens)
	if err != nil {
		st.Err = fmt.Sprintf("synthesis pass failed: %v", err)
		return
	}
	st.Synthesis = synthesis
}
