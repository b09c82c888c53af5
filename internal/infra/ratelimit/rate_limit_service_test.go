package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/servicebay/internal/infra/logger"
)

func TestNewService_DisabledIsNoop(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		client redis.UniversalClient
	}{
		{"disabled", Config{Enabled: false}, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})},
		{"no client", Config{Enabled: true, Requests: 1, Window: time.Minute}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config, tt.client, logger.NewNopLogger())
			_, ok := svc.(*noopService)
			require.True(t, ok)

			for i := 0; i < 5; i++ {
				allowed, err := svc.Allow(context.Background(), "k", 1, time.Minute)
				require.NoError(t, err)
				assert.True(t, allowed)
			}
		})
	}
}

func TestRedisService_ErrorsWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	svc := NewService(Config{Enabled: true, Requests: 5, Window: time.Minute}, client, logger.NewNopLogger())

	allowed, err := svc.Allow(context.Background(), "servicebay:ratelimit:test", 5, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}
