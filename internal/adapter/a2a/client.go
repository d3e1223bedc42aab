package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/adapter/observability"
	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// Call outcomes used as metric labels.
const (
	outcomeOK          = "ok"
	outcomeAgentError  = "agent_error"
	outcomeNoOutput    = "no_output"
	outcomeTimeout     = "timeout"
	outcomeUnreachable = "unreachable"
	outcomeError       = "error"
)

// Client invokes specialist workers over the A2A protocol. Single calls and
// fan-outs alike never return an error: every failure mode is converted to a
// descriptive result string so one broken worker degrades its own section
// instead of the whole turn.
type Client struct {
	registry    domain.Registry
	fallbackURL func(id string) string
	hc          *http.Client
}

var _ domain.AgentCaller = (*Client)(nil)

// NewClient constructs an A2A client. fallbackURL maps a worker id to its
// static endpoint for when the registry has no live entry.
func NewClient(registry domain.Registry, fallbackURL func(id string) string) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "a2a.call " + r.URL.Host
		}))
	// No client-level timeout: each call carries its own context deadline.
	return &Client{
		registry:    registry,
		fallbackURL: fallbackURL,
		hc:          &http.Client{Transport: transport},
	}
}

// Call sends one task to a worker endpoint and returns the result text or a
// failure description. It never returns an error.
func (c *Client) Call(ctx domain.Context, endpoint, query string, timeout time.Duration, sessionID string) string {
	text, _ := c.invoke(ctx, endpoint, query, timeout, sessionID)
	return text
}

// CallAll resolves each worker id, invokes all of them concurrently under a
// shared deadline, and returns a map keyed by input id. Values are success
// texts or failure descriptions; a slow or broken worker never blocks the
// group beyond the deadline.
func (c *Client) CallAll(ctx domain.Context, ids []string, query string, timeout time.Duration) map[string]string {
	results := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			endpoint := c.registry.Resolve(ctx, id, c.fallbackURL(id))
			start := time.Now()
			text, outcome := c.invoke(ctx, endpoint, query, timeout, "")
			observability.ObserveA2ACall(id, outcome, time.Since(start))
			if outcome != outcomeOK {
				slog.Warn("a2a call degraded",
					slog.String("agent_id", id),
					slog.String("endpoint", endpoint),
					slog.String("outcome", outcome))
			}
			mu.Lock()
			results[id] = text
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// invoke performs one POST {endpoint}/a2a exchange and maps every failure
// path onto a result string plus an outcome label.
func (c *Client) invoke(ctx domain.Context, endpoint, query string, timeout time.Duration, sessionID string) (string, string) {
	task := NewTask(uuid.NewString(), sessionID, query)
	body, _ := json.Marshal(task)

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, endpoint+"/a2a", bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("A2A call to %s failed: %v", endpoint, err), outcomeError
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Sprintf("Agent at %s timed out after %ds.", endpoint, int(timeout.Seconds())), outcomeTimeout
		case isConnectFailure(err):
			return fmt.Sprintf("Agent at %s is unreachable. Check that the service is running.", endpoint), outcomeUnreachable
		default:
			return fmt.Sprintf("A2A call to %s failed: %v", endpoint, err), outcomeError
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Sprintf("A2A call to %s failed: status %d", endpoint, resp.StatusCode), outcomeError
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Sprintf("A2A call to %s failed: %v", endpoint, err), outcomeError
	}

	if result.Status == StatusFailed {
		return fmt.Sprintf("Agent at %s returned error: %s", endpoint, result.Error), outcomeAgentError
	}
	if len(result.Artifacts) > 0 && len(result.Artifacts[0].Parts) > 0 {
		return result.Artifacts[0].Parts[0].Text, outcomeOK
	}
	return "Agent returned no output.", outcomeNoOutput
}

// isConnectFailure reports whether err happened while dialing, i.e. the
// worker process is down or unresolvable rather than slow.
func isConnectFailure(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
