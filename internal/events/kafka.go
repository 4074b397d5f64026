// Package events publishes product change events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/segmentio/kafka-go"
)

const defaultBatchTimeout = 10 * time.Millisecond

// MessageWriter is the subset of kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements core.EventPublisher. Messages are keyed by product
// id so every change to one product lands on the same partition in order.
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewPublisher returns a publisher over writer. A zero timeout leaves the
// caller's deadline in charge.
func NewPublisher(writer MessageWriter, timeout time.Duration) *Publisher {
	return &Publisher{writer: writer, timeout: timeout}
}

// NewKafkaPublisher builds a writer for cfg.Topic on cfg.Brokers.
func NewKafkaPublisher(cfg config.EventsConfig) *Publisher {
	return NewPublisher(newWriter(cfg), cfg.WriteTimeout)
}

// newWriter flushes each write after BatchTimeout instead of waiting for
// kafka-go's default one second batch window.
func newWriter(cfg config.EventsConfig) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           batchTimeout,
	}
}

// Publish writes one event.
func (p *Publisher) Publish(ctx context.Context, event core.ProductEvent) error {
	msg, err := message(event)
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for %s: %w", event.Type, event.ProductID, err)
	}

	logging.FromContext(ctx).Debug("product event published",
		"type", event.Type,
		"product_id", event.ProductID,
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func message(event core.ProductEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	return kafka.Message{
		Key:   []byte(event.ProductID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}
