package usecase

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// PipelineState carries one query through the graph. Nodes write only the
// fields they own; format always runs, even after a node error.
type PipelineState struct {
	Query     string
	Validated string
	Chunks    []domain.RetrievedChunk
	Route     string
	Decision  domain.RouterDecision
	Research  string
	Synthesis string
	Final     string
	Err       string
}

// Pipeline is the compiled query graph: intake, retrieve, dispatch, format.
// Construct it once at startup and share it across requests.
type Pipeline struct {
	Retriever  domain.Retriever
	Router     ModelRouter
	Caller     domain.AgentCaller
	AI         domain.AIClient
	ChatModel  string
	TopK       int
	A2ATimeout time.Duration
}

// NewPipeline constructs a Pipeline with its dependencies.
func NewPipeline(ret domain.Retriever, router ModelRouter, caller domain.AgentCaller, aiClient domain.AIClient, chatModel string, topK int, a2aTimeout time.Duration) Pipeline {
	return Pipeline{
		Retriever:  ret,
		Router:     router,
		Caller:     caller,
		AI:         aiClient,
		ChatModel:  chatModel,
		TopK:       topK,
		A2ATimeout: a2aTimeout,
	}
}

// Run executes the graph for one query and returns the terminal state.
// It never returns an error: failures surface as an "Error: ..." final
// response so the chat endpoint can stay a plain 200.
func (p Pipeline) Run(ctx domain.Context, query string) PipelineState {
	start := time.Now()
	st := PipelineState{Query: query}

	p.intake(&st)
	if st.Err == "" {
		p.retrieve(ctx, &st)
	}
	if st.Err == "" {
		p.dispatch(ctx, &st)
	}
	p.format(&st)

	branch := st.Route
	if branch == "" {
		branch = "none"
	}
	observability.ObservePipeline(branch, time.Since(start), st.Err != "")
	slog.Info("pipeline run finished",
		slog.String("branch", branch),
		slog.Bool("failed", st.Err != ""),
		slog.Duration("duration", time.Since(start)))
	return st
}

// intake trims and validates the query. An empty query short-circuits the
// graph with a provisional final response in case format never runs.
func (p Pipeline) intake(st *PipelineState) {
	st.Validated = strings.TrimSpace(st.Query)
	if st.Validated == "" {
		st.Err = "Empty query received."
		st.Final = "Please provide a question."
	}
}

// retrieve loads pre-context for both branches. Retriever faults already
// degrade to an empty slice, so only a panic can mark the state failed here.
func (p Pipeline) retrieve(ctx domain.Context, st *PipelineState) {
	defer p.recoverNode(st, "retrieve")
	st.Chunks = p.Retriever.Retrieve(ctx, st.Validated, p.TopK)
}

// dispatch routes the query through the keyword gate and runs the chosen
// branch.
func (p Pipeline) dispatch(ctx domain.Context, st *PipelineState) {
	defer p.recoverNode(st, "dispatch")
	st.Route = ClassifyQuery(st.Validated)
	if st.Route == RouteFinancial {
		p.runFinancial(ctx, st)
		return
	}
	p.runGeneral(ctx, st)
}

// runFinancial is the financial branch: router decision, A2A fan-out, merge.
// A single selected worker's text is used directly; multiple workers are
// merged into the multi-source block.
func (p Pipeline) runFinancial(ctx domain.Context, st *PipelineState) {
	st.Decision = p.Router.Route(ctx, st.Validated)

	fullQuery := st.Validated
	if ragText := numberedContext(st.Chunks); ragText != "" {
		fullQuery = st.Validated + "\n\n[Pre-retrieved knowledge base context]\n" + ragText
	}

	var results map[string]string
	if st.Decision.Strategy == domain.StrategySequential {
		results = make(map[string]string, len(st.Decision.Agents))
		for _, id := range st.Decision.Agents {
			for agentID, text := range p.Caller.CallAll(ctx, []string{id}, fullQuery, p.A2ATimeout) {
				results[agentID] = text
			}
		}
	} else {
		results = p.Caller.CallAll(ctx, st.Decision.Agents, fullQuery, p.A2ATimeout)
	}

	if len(st.Decision.Agents) == 1 {
		text := results[st.Decision.Agents[0]]
		st.Research = text
		st.Synthesis = text
		return
	}
	merged := MergeResults(st.Validated, st.Decision.Agents, results)
	st.Research = merged
	st.Synthesis = merged
}

// format assembles the user-visible response. On error the body is the error
// text; otherwise the synthesis plus a sources footer when context was used.
func (p Pipeline) format(st *PipelineState) {
	if st.Err != "" {
		st.Final = "Error: " + st.Err
		return
	}
	st.Final = st.Synthesis + sourcesFooter(st.Chunks)
}

// sourcesFooter lists the unique source tags of the retrieved context,
// sorted, or returns empty when there is nothing to cite.
func sourcesFooter(chunks []domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(chunks))
	tags := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Source == "" || seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		tags = append(tags, c.Source)
	}
	if len(tags) == 0 {
		return ""
	}
	sort.Strings(tags)
	return "\n\n---\n**Sources:** " + strings.Join(tags, " | ")
}

// recoverNode converts a node panic into a state error so format still runs.
func (p Pipeline) recoverNode(st *PipelineState, node string) {
	if r := recover(); r != nil {
		st.Err = fmt.Sprintf("%s node panic: %v", node, r)
		slog.Error("pipeline node panic",
			slog.String("node", node),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())))
	}
}
