package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	EventBookingSubmitted = "BookingSubmitted"
	EventBookingReviewed  = "BookingReviewed"
	EventBookingDeleted   = "BookingDeleted"
)

const producerName = "restaurant-booking"

// Envelope wraps every event published to the stream.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

type Publisher interface {
	Publish(ctx context.Context, key string, env Envelope) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Envelope) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish writes synchronously; events keyed by booking id stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// New returns a Kafka publisher when brokers are configured and a no-op
// publisher otherwise.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}
