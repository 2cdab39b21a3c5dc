package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/scienceswipe/internal/domain"
	"github.com/helixir/scienceswipe/internal/observability"
)

// ServiceName is recorded in every envelope.
const ServiceName = "scienceswipe"

// Publisher publishes domain events.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) error
	Close() error
}

// Envelope is the JSON value of every published message.
type Envelope struct {
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	Source        domain.Source   `json:"source"`
	PaperID       string          `json:"paper_id"`
	UserID        string          `json:"user_id,omitempty"`
	Service       string          `json:"service"`
	RequestID     string          `json:"request_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps event with the request metadata found in ctx.
func NewEnvelope(ctx context.Context, event *domain.Event) Envelope {
	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		EventID:       event.EventID,
		Type:          event.EventType,
		Source:        event.Source,
		PaperID:       event.PaperID,
		UserID:        observability.UserIDFromContext(ctx),
		Service:       ServiceName,
		RequestID:     observability.RequestIDFromContext(ctx),
		CorrelationID: observability.CorrelationIDFromContext(ctx),
		OccurredAt:    event.CreatedAt,
		Payload:       payload,
	}
}

// Config holds Kafka publisher settings.
type Config struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
}

// messageWriter is the part of kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic.
type KafkaPublisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic.
func NewKafkaPublisher(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *KafkaPublisher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(writer, logger, metrics)
}

func newKafkaPublisher(w messageWriter, logger zerolog.Logger, metrics *observability.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		metrics: metrics,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish writes one event. The message key is the event's partition key.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return domain.NewValidationError("event", "event is required")
	}
	if event.EventType == "" {
		return domain.NewValidationError("event_type", "event type is required")
	}

	value, err := json.Marshal(NewEnvelope(ctx, event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	})
	p.metrics.RecordEventPublished(event.EventType, err)
	if err != nil {
		p.logger.Error().Err(err).
			Str("event_type", event.EventType).
			Str("event_id", event.EventID).
			Msg("failed to publish event")
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}

	p.logger.Debug().
		Str("event_type", event.EventType).
		Str("event_id", event.EventID).
		Msg("published event")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *domain.Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
)
