// Package redpanda publishes the audit stream of completed chat turns.
//
// Every turn the gateway answers is projected onto the `chat.turns` topic,
// keyed by session id so one session's turns stay ordered within a
// partition. Publishing is fire-and-forget from the caller's point of view:
// the chat response never waits on Kafka.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/agentic-ai-dispatcher/internal/domain"
)

// EventTurnCompleted is the event type stamped on every audit record.
const EventTurnCompleted = "chat.turn.completed"

// TurnEvent is the audit-stream projection of a completed turn.
type TurnEvent struct {
	EventType string            `json:"event_type"`
	EmittedAt time.Time         `json:"emitted_at"`
	Turn      domain.TurnRecord `json:"turn"`
}

// Producer publishes turn events to the audit topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

var _ domain.AuditPublisher = (*Producer)(nil)

// NewProducer constructs a Producer and makes sure the audit topic exists.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if topic == "" {
		return nil, fmt.Errorf("audit topic cannot be empty")
	}

	kotelTracer := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)
	kotelService := kotel.NewKotel(
		kotel.WithTracer(kotelTracer),
	)

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.WithHooks(kotelService.Hooks()...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
		kgo.DialTimeout(10 * time.Second),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda client: %w", err)
	}

	// Best effort: brokers may not be ready yet; the first publish retries
	// topic resolution anyway.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := createTopicIfNotExists(ctx, client, topic, 1, 1); err != nil {
		slog.Warn("failed to create audit topic, it may already exist",
			slog.String("topic", topic),
			slog.Any("error", err))
	}

	slog.Info("audit producer created", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic}, nil
}

// PublishTurn writes one turn event to the audit topic and waits for the
// broker ack. Callers run it off the request path.
func (p *Producer) PublishTurn(ctx domain.Context, turn domain.TurnRecord) error {
	event := TurnEvent{
		EventType: EventTurnCompleted,
		EmittedAt: time.Now().UTC(),
		Turn:      turn,
	}
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal turn event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(turn.SessionID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(EventTurnCompleted)},
			{Key: "turn_id", Value: []byte(turn.ID)},
			{Key: "desk_name", Value: []byte(turn.DeskName)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce turn event: %w", err)
	}

	slog.Debug("turn event published",
		slog.String("topic", p.topic),
		slog.String("session_id", turn.SessionID),
		slog.String("turn_id", turn.ID))
	return nil
}

// Ping verifies broker connectivity for readiness checks.
func (p *Producer) Ping(ctx domain.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and closes the underlying client.
func (p *Producer) Close() error {
	if p.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.client.Flush(ctx)
		p.client.Close()
	}
	return nil
}
