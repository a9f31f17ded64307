package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/logger"
)

type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// NewTailConsumer follows a single-partition topic from its newest offset
// without joining a group, so every instance sees every message.
func NewTailConsumer(brokers []string, topic string, log *logger.Logger) (*Consumer, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	if err := reader.SetOffset(kafka.LastOffset); err != nil {
		reader.Close()
		return nil, fmt.Errorf("seek %s: %w", topic, err)
	}
	return &Consumer{reader: reader, log: log}, nil
}

// Run hands every message to handler until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handler func(kafka.Message)) {
	topic := c.reader.Config().Topic
	c.log.LogKafka("CONSUME", topic, "consumer started")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.LogKafka("CONSUME", topic, "consumer stopped")
				return
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading from %s: %v", topic, err))
			continue
		}
		handler(msg)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
