package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"github.com/fixora/servicebay/internal/infra/logger"
	"github.com/fixora/servicebay/internal/ports"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestNewRedisPublisher_DefaultChannel(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	assert.Equal(t, DefaultChannel, NewRedisPublisher(client, "", logger.NewNopLogger()).Channel())
	assert.Equal(t, "custom", NewRedisPublisher(client, "custom", logger.NewNopLogger()).Channel())
}

func TestRedisPublisher_PublishErrorIsReturned(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	publisher := NewRedisPublisher(client, "", logger.NewNopLogger())
	event := ports.NewEvent(ports.EventTypeServiceRecordDeleted, "r1", "staff1", nil)

	err := publisher.Publish(context.Background(), *event)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish event")
}

func TestNoopPublisher(t *testing.T) {
	var publisher ports.EventPublisher = NoopPublisher{}
	assert.NoError(t, publisher.Publish(context.Background(), ports.Event{Type: ports.EventTypeServiceRecordCreated}))
}
