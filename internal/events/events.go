// Package events streams decision receipts to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher emits one JSON record per decision.
type Publisher interface {
	Publish(ctx context.Context, key string, record any) error
	Close() error
}

// Config selects the decision stream. An empty broker list means no stream.
type Config struct {
	Brokers []string `yaml:"brokers" json:"brokers"`
	Topic   string   `yaml:"topic"   json:"topic"`
}

// Enabled reports whether a stream is configured.
func (c Config) Enabled() bool { return len(c.Brokers) > 0 }

// New returns a Kafka publisher for cfg, or Nop when cfg is disabled.
func New(cfg Config) (Publisher, error) {
	if !cfg.Enabled() {
		return Nop{}, nil
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("events: topic is required when brokers are set")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return NewKafkaPublisher(w), nil
}

// Nop discards every record.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes records as JSON messages keyed by agent id, so all
// decisions for one agent land on the same partition in order.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher wraps an existing writer.
func NewKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("events: marshal record: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: write message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
