package eventpublisher

import (
	"context"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
	"github.com/muhammadchandra19/settlement/services/settlement/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic. Messages are keyed by
// pair, or by user for balance events, so each key keeps its order.
type KafkaPublisher struct {
	writer MessageWriter
	logger logger.Interface
}

// NewKafkaPublisher creates a publisher writing to the configured topic.
func NewKafkaPublisher(cfg config.EventKafkaConfig, log logger.Interface) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return NewKafkaPublisherWithWriter(writer, log)
}

// NewKafkaPublisherWithWriter creates a publisher on top of writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, log logger.Interface) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: log,
	}
}

// Publish writes events in one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...eventv1.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := eventv1.ToBytes(e)
		if err != nil {
			return errors.NewTracer("failed to encode event").Wrap(err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Key()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "type", Value: []byte(e.Type)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.ErrorContext(ctx, err,
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "events", Value: len(events)},
		)
		return errors.NewErrorDetails("failed to publish events", string(errors.EventPublishError), "kafka").WithCause(err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
