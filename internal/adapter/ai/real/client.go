// Package real implements a real AI client backed by OpenRouter (chat) and an
// OpenAI-compatible embeddings endpoint.
//
// Calls are single-attempt on purpose: pipeline steps surface failures to the
// caller instead of retrying, so a slow provider cannot stall a turn beyond
// its deadline. The knowledge seeder wraps Embed with its own backoff.
package real

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/config"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// Client implements domain.AIClient using OpenRouter (chat) and OpenAI (embeddings).
type Client struct {
	cfg     config.Config
	chatHC  *http.Client
	embedHC *http.Client
	counter *tokencount.Counter
}

// New constructs a real AI client with instrumented transports.
func New(cfg config.Config) *Client {
	chatTransport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "ai.chat " + r.URL.Host
		}))
	embedTransport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "ai.embed " + r.URL.Host
		}))
	return &Client{
		cfg:     cfg,
		chatHC:  &http.Client{Timeout: 120 * time.Second, Transport: chatTransport},
		embedHC: &http.Client{Timeout: 30 * time.Second, Transport: embedTransport},
		counter: tokencount.NewCounter(),
	}
}

// readSnippet reads up to n bytes from r and returns it as a string.
func readSnippet(r io.Reader, n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	buf := make([]byte, n)
	m, _ := io.ReadAtLeast(&limitedReader{R: r, N: int64(n)}, buf, 0)
	return string(buf[:m])
}

type limitedReader struct {
	R io.Reader
	N int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.N <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err := l.R.Read(p)
	l.N -= int64(n)
	return n, err
}

// ChatJSON performs one deterministic completion expected to yield JSON.
func (c *Client) ChatJSON(ctx domain.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.chat(ctx, "chat_json", model, systemPrompt, userPrompt, maxTokens, 0.0, true)
}

// Chat performs one free-form completion.
func (c *Client) Chat(ctx domain.Context, model, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.chat(ctx, "chat", model, systemPrompt, userPrompt, maxTokens, 0.2, false)
}

func (c *Client) chat(ctx domain.Context, op, model, systemPrompt, userPrompt string, maxTokens int, temperature float64, jsonMode bool) (string, error) {
	if c.cfg.OpenRouterAPIKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY missing", domain.ErrInvalidArgument)
	}
	if model == "" {
		return "", fmt.Errorf("%w: model missing", domain.ErrInvalidArgument)
	}

	if n, err := c.counter.CountChatTokens(systemPrompt, userPrompt, model); err == nil {
		slog.Debug("chat prompt sized", slog.String("model", model), slog.Int("prompt_tokens", n), slog.Int("max_tokens", maxTokens))
	}

	body := map[string]any{
		"model":       model,
		"temperature": temperature,
		"max_tokens":  maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
	}
	if jsonMode {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	b, _ := json.Marshal(body)

	start := time.Now()
	r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenRouterBaseURL+"/chat/completions", bytes.NewReader(b))
	r.Header.Set("Authorization", "Bearer "+c.cfg.OpenRouterAPIKey)
	r.Header.Set("Content-Type", "application/json")
	if c.cfg.OpenRouterReferer != "" {
		r.Header.Set("HTTP-Referer", c.cfg.OpenRouterReferer)
	}
	if c.cfg.OpenRouterTitle != "" {
		r.Header.Set("X-Title", c.cfg.OpenRouterTitle)
	}
	resp, err := c.chatHC.Do(r)
	observability.AIRequestsTotal.WithLabelValues("openrouter", op).Inc()
	observability.AIRequestDuration.WithLabelValues("openrouter", op).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: chat call: %v", domain.ErrUpstreamTimeout, err)
		}
		return "", fmt.Errorf("chat call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("ai provider rate limited", slog.String("provider", "openrouter"), slog.String("op", op), slog.String("model", model), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
		return "", fmt.Errorf("%w: chat status 429", domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodySnippet := readSnippet(resp.Body, 512)
		slog.Warn("ai provider non-2xx", slog.String("provider", "openrouter"), slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("model", model), slog.String("x_request_id", resp.Header.Get("X-Request-Id")), slog.String("body", bodySnippet))
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: chat status %d", domain.ErrUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("chat status %d", resp.StatusCode)
	}

	var out struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: chat decode: %v", domain.ErrSchemaInvalid, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrSchemaInvalid)
	}
	content := out.Choices[0].Message.Content

	if usage, err := c.counter.CalculateUsage(systemPrompt, userPrompt, content, model, "openrouter"); err == nil {
		slog.Debug("chat completed",
			slog.String("model", model),
			slog.String("served_model", out.Model),
			slog.Int("prompt_tokens", usage.PromptTokens),
			slog.Int("completion_tokens", usage.CompletionTokens))
	}
	return content, nil
}

// Embed calls the embeddings endpoint and returns one vector per input text.
func (c *Client) Embed(ctx domain.Context, texts []string) ([][]float32, error) {
	if c.cfg.OpenAIAPIKey == "" || c.cfg.EmbeddingsModel == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY or EMBEDDINGS_MODEL missing", domain.ErrInvalidArgument)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	body := map[string]any{
		"model": c.cfg.EmbeddingsModel,
		"input": texts,
	}
	b, _ := json.Marshal(body)

	start := time.Now()
	r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OpenAIBaseURL+"/embeddings", bytes.NewReader(b))
	r.Header.Set("Authorization", "Bearer "+c.cfg.OpenAIAPIKey)
	r.Header.Set("Content-Type", "application/json")
	resp, err := c.embedHC.Do(r)
	observability.AIRequestsTotal.WithLabelValues("openai", "embed").Inc()
	observability.AIRequestDuration.WithLabelValues("openai", "embed").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("embed call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("ai provider rate limited", slog.String("provider", "openai"), slog.String("op", "embed"), slog.String("x_request_id", resp.Header.Get("X-Request-Id")))
		return nil, fmt.Errorf("%w: embed status 429", domain.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodySnippet := readSnippet(resp.Body, 512)
		slog.Warn("ai provider non-2xx", slog.String("provider", "openai"), slog.String("op", "embed"), slog.Int("status", resp.StatusCode), slog.String("model", c.cfg.EmbeddingsModel), slog.String("body", bodySnippet))
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: embed status %d", domain.ErrUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("embed status %d", resp.StatusCode)
	}

	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: embed decode: %v", domain.ErrSchemaInvalid, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: embed returned %d vectors for %d inputs", domain.ErrSchemaInvalid, len(out.Data), len(texts))
	}

	res := make([][]float32, len(out.Data))
	for i := range out.Data {
		v := make([]float32, len(out.Data[i].Embedding))
		for j := range out.Data[i].Embedding {
			v[j] = float32(out.Data[i].Embedding[j])
		}
		res[i] = v
	}
	return res, nil
}
