package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherWritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)

	rec := map[string]any{"receipt_id": "r-1", "decision": "block", "risk": 90}
	if err := p.Publish(context.Background(), "ops-assistant", rec); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	m := w.msgs[0]
	if string(m.Key) != "ops-assistant" {
		t.Errorf("expected agent key, got %q", m.Key)
	}
	var back map[string]any
	if err := json.Unmarshal(m.Value, &back); err != nil {
		t.Fatal(err)
	}
	if back["receipt_id"] != "r-1" || back["decision"] != "block" {
		t.Errorf("unexpected payload %v", back)
	}
	if m.Time.IsZero() {
		t.Error("message time should be set")
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("Close should close the writer")
	}
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&fakeWriter{err: boom})
	err := p.Publish(context.Background(), "a", map[string]string{"x": "y"})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
}

func TestKafkaPublisherMarshalError(t *testing.T) {
	p := NewKafkaPublisher(&fakeWriter{})
	if err := p.Publish(context.Background(), "a", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestNewDisabledIsNop(t *testing.T) {
	p, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(Nop); !ok {
		t.Errorf("expected Nop, got %T", p)
	}
	if err := p.Publish(context.Background(), "a", 1); err != nil {
		t.Error(err)
	}
}

func TestNewRequiresTopic(t *testing.T) {
	if _, err := New(Config{Brokers: []string{"localhost:9092"}}); err == nil {
		t.Error("expected error without topic")
	}
}

func TestNewKafka(t *testing.T) {
	p, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "agentgate.decisions"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*KafkaPublisher); !ok {
		t.Errorf("expected *KafkaPublisher, got %T", p)
	}
	p.Close()
}
