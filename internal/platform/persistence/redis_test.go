package persistence

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fsp-loan-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)

		client, err := NewRedisClient(context.Background(), logger, &config.RedisConfig{Addr: mr.Addr()})
		require.NoError(t, err)
		defer client.Close()

		require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
		assert.True(t, mr.Exists("k"))
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		client, err := NewRedisClient(context.Background(), logger, &config.RedisConfig{Addr: addr})
		assert.Error(t, err)
		assert.Nil(t, client)
		assert.Contains(t, err.Error(), "failed to ping Redis")
	})
}
