package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/vncsmyrnk/pollregistry/internal/core/domain"
	"github.com/vncsmyrnk/pollregistry/internal/core/ports"
)

const kindHeader = "event-kind"

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher writes registry events to topic. Messages are keyed by poll id
// and routed with the Hash balancer, so events of one poll keep their order.
func NewPublisher(brokers []string, topic string) ports.EventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &Publisher{writer: writer}
}

func (p *Publisher) Publish(ctx context.Context, events ...domain.Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := EncodeEvent(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish registry events: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func EncodeEvent(e domain.Event) (kafka.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event %s: %w", e.ID, err)
	}
	return kafka.Message{
		Key:   []byte(e.PollID.String()),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: kindHeader, Value: []byte(e.Kind)},
		},
	}, nil
}

func DecodeEvent(msg kafka.Message) (domain.Event, error) {
	var e domain.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return domain.Event{}, fmt.Errorf("failed to decode event at offset %d: %w", msg.Offset, err)
	}
	return e, nil
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...domain.Event) error { return nil }

func (NopPublisher) Close() error { return nil }
