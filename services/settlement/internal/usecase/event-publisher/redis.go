package eventpublisher

import (
	"context"
	stderrors "errors"

	"github.com/muhammadchandra19/settlement/pkg/errors"
	"github.com/muhammadchandra19/settlement/pkg/logger"
	"github.com/muhammadchandra19/settlement/pkg/redis"
	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
)

// RedisPublisher fans events out on Redis pub/sub. Every user an event
// concerns gets it on their own channel; order and trade events also go
// to the channel of their pair.
type RedisPublisher struct {
	redisclient redis.Client
	config      *redis.Config
	logger      logger.Interface
}

// NewRedisPublisher creates a Redis pub/sub publisher.
func NewRedisPublisher(redisclient redis.Client, config *redis.Config, log logger.Interface) *RedisPublisher {
	return &RedisPublisher{
		redisclient: redisclient,
		config:      config,
		logger:      log,
	}
}

// UserChannel is the channel the events of userID are published on.
func (p *RedisPublisher) UserChannel(userID string) string {
	return p.config.Key("events:user:" + userID)
}

// PairChannel is the channel the events of pair are published on.
func (p *RedisPublisher) PairChannel(pair string) string {
	return p.config.Key("events:pair:" + pair)
}

func (p *RedisPublisher) channels(e eventv1.Event) []string {
	userIDs := e.UserIDs()
	channels := make([]string, 0, len(userIDs)+1)
	for _, userID := range userIDs {
		channels = append(channels, p.UserChannel(userID))
	}
	if e.Adjustment == nil {
		if key := e.Key(); key != "" {
			channels = append(channels, p.PairChannel(key))
		}
	}
	return channels
}

// Publish sends every event to its channels. A failing channel does not
// stop the others; all failures are returned together.
func (p *RedisPublisher) Publish(ctx context.Context, events ...eventv1.Event) error {
	var errs []error
	for _, e := range events {
		payload, err := eventv1.ToBytes(e)
		if err != nil {
			errs = append(errs, errors.NewTracer("failed to encode event").Wrap(err))
			continue
		}

		for _, channel := range p.channels(e) {
			if _, err := p.redisclient.Publish(ctx, channel, payload); err != nil {
				p.logger.ErrorContext(ctx, err,
					logger.Field{Key: "channel", Value: channel},
					logger.Field{Key: "eventID", Value: e.ID},
				)
				errs = append(errs, err)
			}
		}
	}
	return stderrors.Join(errs...)
}
