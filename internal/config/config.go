// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// RedisURL backs the session store, the agent registry and the
	// per-session rate limiter.
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Session store bounds.
	SessionTable       string `env:"SESSION_TABLE" envDefault:"agentic-ai-sessions"`
	SessionTTLHours    int    `env:"SESSION_TTL_HOURS" envDefault:"24"`
	SessionMaxMessages int    `env:"SESSION_MAX_MESSAGES" envDefault:"20"`
	SessionMaxMsgChars int    `env:"SESSION_MAX_MSG_CHARS" envDefault:"1000"`

	AgentRegistryTable string `env:"AGENT_REGISTRY_TABLE" envDefault:"agentic-ai-agent-registry"`

	// Retrieval.
	RAGTopK          int    `env:"RAG_TOP_K" envDefault:"4"`
	QdrantURL        string `env:"QDRANT_URL" envDefault:"http://localhost:6333"`
	QdrantAPIKey     string `env:"QDRANT_API_KEY"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"knowledge_base"`

	// LLM access. OpenRouter serves chat (router + general branch), the
	// OpenAI-compatible endpoint serves embeddings.
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterReferer string `env:"OPENROUTER_REFERER"`
	OpenRouterTitle   string `env:"OPENROUTER_TITLE" envDefault:"Agentic AI Dispatcher"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	EmbeddingsModel   string `env:"EMBEDDINGS_MODEL" envDefault:"text-embedding-3-small"`
	// RouterModel answers the routing prompt; keep it small and fast.
	RouterModel string `env:"ROUTER_MODEL" envDefault:"anthropic/claude-3.5-haiku"`
	// ChatModel powers the general-branch researcher and synthesizer passes.
	ChatModel      string `env:"CHAT_MODEL" envDefault:"anthropic/claude-3.5-sonnet"`
	EmbedCacheSize int    `env:"EMBED_CACHE_SIZE" envDefault:"2048"`

	// A2ATimeout is the per-worker deadline for fan-out calls.
	A2ATimeout time.Duration `env:"A2A_TIMEOUT" envDefault:"120s"`

	// Fallback endpoints used when registry resolution fails.
	KDBAgentURL              string `env:"KDB_AGENT_URL" envDefault:"http://kdb-agent:8001"`
	AMPSAgentURL             string `env:"AMPS_AGENT_URL" envDefault:"http://amps-agent:8002"`
	PortfolioAgentURL        string `env:"PORTFOLIO_AGENT_URL" envDefault:"http://portfolio-agent:8003"`
	CDSAgentURL              string `env:"CDS_AGENT_URL" envDefault:"http://cds-agent:8004"`
	ETFAgentURL              string `env:"ETF_AGENT_URL" envDefault:"http://etf-agent:8005"`
	RiskPnlAgentURL          string `env:"RISK_PNL_AGENT_URL" envDefault:"http://risk-pnl-agent:8006"`
	FinancialOrchestratorURL string `env:"FINANCIAL_ORCHESTRATOR_URL" envDefault:"http://financial-orchestrator:8007"`

	// Work pool.
	PipelineWorkers  int           `env:"PIPELINE_WORKERS" envDefault:"8"`
	PersistQueueSize int           `env:"PERSIST_QUEUE_SIZE" envDefault:"64"`
	StreamTokenDelay time.Duration `env:"STREAM_TOKEN_DELAY" envDefault:"10ms"`

	// Turn archive. Empty DB_URL disables archiving.
	DBURL             string        `env:"DB_URL"`
	DataRetentionDays int           `env:"DATA_RETENTION_DAYS" envDefault:"90"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`

	// Audit stream. Empty broker list disables publishing.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"AUDIT_TOPIC" envDefault:"chat.turns"`

	// Per-session chat throttle (requests per window).
	SessionRateLimit  int           `env:"SESSION_RATE_LIMIT" envDefault:"30"`
	SessionRateWindow time.Duration `env:"SESSION_RATE_WINDOW" envDefault:"1m"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"agentic-ai-dispatcher"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// HTTPWriteTimeout and RequestTimeout must exceed A2ATimeout or long
	// fan-outs are cut off mid-response.
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"180s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT" envDefault:"180s"`

	// Worker runtime identity (cmd/agent). AgentPort 0 means the card's
	// conventional port; AgentEndpoint empty means http://<id>:<port>.
	AgentID       string `env:"AGENT_ID" envDefault:"kdb-agent"`
	AgentPort     int    `env:"AGENT_PORT" envDefault:"0"`
	AgentEndpoint string `env:"AGENT_ENDPOINT"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// SessionTTL returns the absolute session expiry as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ArchiveEnabled reports whether the Postgres turn archive is configured.
func (c Config) ArchiveEnabled() bool { return c.DBURL != "" }

// AuditEnabled reports whether the Kafka audit stream is configured.
func (c Config) AuditEnabled() bool { return len(c.KafkaBrokers) > 0 }

// AgentFallbackURL returns the compiled-in fallback endpoint for a worker id,
// or empty when the id is unknown.
func (c Config) AgentFallbackURL(id string) string {
	switch id {
	case "kdb-agent":
		return c.KDBAgentURL
	case "amps-agent":
		return c.AMPSAgentURL
	case "portfolio-agent":
		return c.PortfolioAgentURL
	case "cds-agent":
		return c.CDSAgentURL
	case "etf-agent":
		return c.ETFAgentURL
	case "risk-pnl-agent":
		return c.RiskPnlAgentURL
	case "financial-orchestrator":
		return c.FinancialOrchestratorURL
	}
	return ""
}
