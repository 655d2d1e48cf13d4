package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workforce-export-api/pkg/config"
)

func TestPingWithoutClient(t *testing.T) {
	require.ErrorContains(t, Ping(context.Background(), nil), "not configured")
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client, err := NewRedis(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	require.Nil(t, client)
}
