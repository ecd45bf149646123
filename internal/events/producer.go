package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

const (
	TopicUserEvents  = "user_events"
	TopicMovieEvents = "movie_events"
	TopicPostEvents  = "post_events"
)

// Producer publishes domain events to Kafka. A nil Producer (no brokers
// configured) is valid and drops every event, so the server runs
// single-process without any broker.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w}
}

func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event map[string]any) error {
	if p == nil || p.writer == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
