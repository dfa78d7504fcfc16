package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

const defaultTopic = "consensus.signals"

// messageWriter es el subconjunto de *kafka.Writer que usa el publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SignalEvent es el payload publicado por cada señal nueva.
type SignalEvent struct {
	Type   string                 `json:"type"`
	SentAt time.Time              `json:"sent_at"`
	Signal domain.ConsensusSignal `json:"signal"`
}

// Publisher implementa ports.SignalPublisher sobre un topic de Kafka.
// La clave del mensaje es market_id:side, así un mismo mercado cae en la misma partición.
type Publisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewPublisher crea un publisher síncrono hacia brokers/topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka.NewPublisher: brokers are required")
	}
	if topic == "" {
		topic = defaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, topic), nil
}

func newPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic, now: time.Now}
}

// PublishSignal publica la señal como evento JSON.
func (p *Publisher) PublishSignal(ctx context.Context, sig domain.ConsensusSignal) error {
	value, err := json.Marshal(SignalEvent{
		Type:   "consensus_signal",
		SentAt: p.now().UTC(),
		Signal: sig,
	})
	if err != nil {
		return fmt.Errorf("kafka.PublishSignal: marshal: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(sig.MarketID + ":" + string(sig.Side)),
		Value: value,
		Time:  p.now(),
		Headers: []kafka.Header{
			{Key: "signal_id", Value: []byte(sig.ID)},
			{Key: "day", Value: []byte(sig.Day)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka.PublishSignal: %s/%s to %s: %w", sig.MarketID, sig.Side, p.topic, err)
	}
	return nil
}

// Close vacía y cierra el writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
