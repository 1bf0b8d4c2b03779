// Package kafka publishes audit events to a Kafka topic. The topic is the
// durable feed consumed by the compliance archive; downstream retention and
// storage are the consumer's responsibility.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "kyc-gateway/pkg/platform/audit"
)

// Publisher writes audit events to Kafka. It implements audit.Store so it can
// stand in as the sink of record; the list operations are not supported
// (reads happen downstream).
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects a Kafka producer for the given brokers and topic.
func New(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// payload is the JSON structure written to the topic. Field names are part of
// the consumer contract; do not rename without coordinating downstream.
type payload struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	Timestamp      string `json:"timestamp"`
	RegistrationID string `json:"registration_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	Action         string `json:"action"`
	PriorStatus    string `json:"prior_status,omitempty"`
	NewStatus      string `json:"new_status,omitempty"`
	Outcome        string `json:"outcome,omitempty"`
	Reason         string `json:"reason,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	ActorID        string `json:"actor_id,omitempty"`
}

// Append produces one audit event synchronously. Events for the same session
// share a partition key so consumers observe transitions in order.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	body, err := json.Marshal(payload{
		ID:             id,
		Category:       string(audit.AuditEvent(event.Action).Category()),
		Timestamp:      ts.Format(time.RFC3339Nano),
		RegistrationID: event.RegistrationID,
		SessionID:      event.SessionID,
		Action:         event.Action,
		PriorStatus:    event.PriorStatus,
		NewStatus:      event.NewStatus,
		Outcome:        event.Outcome,
		Reason:         event.Reason,
		RequestID:      event.RequestID,
		ActorID:        event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SessionID),
		Value: body,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListBySession is not supported; audit reads happen in the downstream consumer.
func (p *Publisher) ListBySession(context.Context, string) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka audit publisher does not support reads")
}

// ListRecent is not supported; audit reads happen in the downstream consumer.
func (p *Publisher) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka audit publisher does not support reads")
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
