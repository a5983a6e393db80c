package storage

import (
	"context"

	"github.com/segmentio/kafka-go"

	"order-events/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes a batch to a topic in a single produce call.
// Messages are keyed by order id so both events of an order share a partition.
type KafkaPublisher struct {
	topic  string
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}
}

func (p *KafkaPublisher) Name() string {
	return "kafka:" + p.topic
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		data, err := encodeEvent(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(ev.Data.OrderID),
			Value:   data,
			Headers: []kafka.Header{{Key: "type", Value: []byte(ev.Type)}},
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
