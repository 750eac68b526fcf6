package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/maverick16108/atlas/internal/auction/domain"
	"github.com/segmentio/kafka-go"
)

const eventHeader = "event"

// Producer streams auction events to a Kafka topic, keyed by auction so one
// auction's events stay ordered within a partition.
type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer}
}

func (p *Producer) Name() string { return "kafka" }

// Send implements eventbus.Sink.
func (p *Producer) Send(ctx context.Context, event domain.Event) error {
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for auction %s: %w", event.Name(), event.AuctionKey(), err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

func encodeMessage(event domain.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", event.Name(), err)
	}
	return kafka.Message{
		Key:   []byte(event.AuctionKey().String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: eventHeader, Value: []byte(event.Name())},
		},
	}, nil
}
