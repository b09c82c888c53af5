package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/servicebay/internal/infra/logger"
	"github.com/fixora/servicebay/internal/ports"
)

// DefaultChannel is the Redis channel lifecycle events are published on
const DefaultChannel = "servicebay:service_records"

// RedisPublisher publishes lifecycle events on a Redis pub/sub channel
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	logger  logger.Logger
}

// NewRedisPublisher creates a publisher on an existing client
func NewRedisPublisher(client redis.UniversalClient, channel string, log logger.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  log,
	}
}

// Publish implements ports.EventPublisher
func (p *RedisPublisher) Publish(ctx context.Context, event ports.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug(ctx, "Event published", map[string]interface{}{
		"event_type":   event.Type,
		"aggregate_id": event.AggregateID,
		"channel":      p.channel,
		"receivers":    receivers,
	})
	return nil
}

// Channel returns the channel events are published on
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// NoopPublisher drops every event. Used when Redis is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event ports.Event) error {
	return nil
}
