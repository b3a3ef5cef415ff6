package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Run hands every event to handle until ctx is cancelled. Offsets are only
// committed after handle returns nil; an event that cannot be decoded is
// logged and committed so it does not block the partition.
func (c *Consumer) Run(ctx context.Context, handle ports.EventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to fetch event: %w", err)
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			c.logger.Error("skipping malformed event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		} else if err := handle(ctx, event); err != nil {
			return fmt.Errorf("failed to handle event %d: %w", event.Seq, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
