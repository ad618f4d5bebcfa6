// Package kafka provides a Kafka-backed event publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/foldermate/foldermate/pkg/eventstream"
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is a comma-separated list of broker addresses.
	Brokers string

	// Topic is the topic file events are published to.
	Topic string
}

// Publisher publishes file events to a Kafka topic.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if c.Brokers == "" {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if c.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(c.Brokers, ",")...),
		Topic:    c.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishFile publishes one file event, keyed by the file path so events for
// the same file stay ordered within a partition.
func (p *Publisher) PublishFile(ctx context.Context, event *eventstream.FileEvent) error {
	if event == nil {
		return eventstream.ErrNilFileEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Path),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("writing event: %w", err)
	}

	p.logger.Debug("published file event",
		zap.String("event_type", event.EventType),
		zap.String("path", event.Path),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
