package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// streamChunk is one SSE event in an OpenAI chat.completion.chunk stream.
// session_id rides only on the first (meta) chunk.
type streamChunk struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	Created   int64          `json:"created"`
	Model     string         `json:"model"`
	SessionID string         `json:"session_id,omitempty"`
	Choices   []streamChoice `json:"choices"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type streamDelta struct {
	Role    string  `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// streamCompletion post-splits the completed answer into whitespace tokens
// and replays them as SSE chunks with a small inter-token delay. The first
// chunk carries the assistant role and the session id so streaming clients
// can capture it; the stream closes with a finish_reason "stop" chunk and a
// [DONE] sentinel.
func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, content, model, sessionID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	chunkID := newCompletionID()
	created := time.Now().Unix()

	emit := func(c streamChunk) {
		b, err := json.Marshal(c)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", b)
		if flusher != nil {
			flusher.Flush()
		}
	}

	base := streamChunk{ID: chunkID, Object: "chat.completion.chunk", Created: created, Model: model}

	meta := base
	meta.SessionID = sessionID
	meta.Choices = []streamChoice{{Index: 0, Delta: streamDelta{Role: "assistant"}}}
	emit(meta)

	delay := s.Cfg.StreamTokenDelay
	for i, word := range strings.Split(content, " ") {
		text := word
		if i > 0 {
			text = " " + word
		}
		tok := base
		tok.Choices = []streamChoice{{Index: 0, Delta: streamDelta{Content: &text}}}
		emit(tok)
		if delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}
	}

	stop := "stop"
	final := base
	final.Choices = []streamChoice{{Index: 0, Delta: streamDelta{}, FinishReason: &stop}}
	emit(final)
	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}
