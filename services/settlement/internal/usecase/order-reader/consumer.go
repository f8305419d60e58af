package orderreader

import (
	"context"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	orderreaderv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/order-reader/v1"
	"github.com/muhammadchandra19/settlement/services/settlement/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader consumes settlement commands from the command topic.
type Reader struct {
	kafkaReader MessageReader
	logger      logger.Interface
}

var _ orderreaderv1.OrderReader = (*Reader)(nil)

// NewReader creates a consumer group reader for the command topic.
// Offsets are committed explicitly once a command was handled.
func NewReader(cfg config.OrderKafkaConfig, log logger.Interface) *Reader {
	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return NewReaderWithKafka(kafkaReader, log)
}

// NewReaderWithKafka creates a consumer on top of kafkaReader.
func NewReaderWithKafka(kafkaReader MessageReader, log logger.Interface) *Reader {
	return &Reader{
		kafkaReader: kafkaReader,
		logger:      log,
	}
}

func (r *Reader) logError(ctx context.Context, err error, operation string) {
	r.logger.ErrorContext(ctx, err,
		logger.Field{Key: "error", Value: err.Error()},
		logger.Field{Key: "operation", Value: operation},
	)
}

// ReadMessage fetches the next message and decodes its command. An
// undecodable message is returned with an EventDecodeError so the caller
// can commit past it.
func (r *Reader) ReadMessage(ctx context.Context) (kafka.Message, orderreaderv1.Command, error) {
	msg, err := r.kafkaReader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logError(ctx, err, "FetchMessage")
		}
		return kafka.Message{}, orderreaderv1.Command{}, err
	}

	cmd, err := orderreaderv1.FromBytes(msg.Value)
	if err != nil {
		r.logError(ctx, err, "DecodeCommand")
		return msg, orderreaderv1.Command{}, errors.NewErrorDetails("failed to decode command", string(errors.EventDecodeError), "value").WithCause(err)
	}
	cmd.Offset = msg.Offset

	r.logger.DebugContext(ctx, "ReadMessage",
		logger.Field{Key: "type", Value: cmd.Type},
		logger.Field{Key: "key", Value: cmd.Key()},
		logger.Field{Key: "offset", Value: msg.Offset},
		logger.Field{Key: "partition", Value: msg.Partition},
	)
	return msg, cmd, nil
}

// CommitMessages commits the messages to Kafka after processing.
func (r *Reader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := r.kafkaReader.CommitMessages(ctx, msgs...); err != nil {
		r.logError(ctx, err, "CommitMessages")
		return err
	}
	return nil
}

// Close properly closes the Kafka reader.
func (r *Reader) Close() error {
	if err := r.kafkaReader.Close(); err != nil {
		r.logError(context.Background(), err, "Close")
		return err
	}
	return nil
}
