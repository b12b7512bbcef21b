package repository

import (
	"context"
	"testing"
	"time"

	"propdesk/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCodeStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	repo := NewRedisCodeStore(client)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("SaveAndGet", func(t *testing.T) {
		require.NoError(t, repo.SaveCode(ctx, "CUS-5002", []byte("bcrypt-hash"), time.Hour))

		got, err := repo.GetCode(ctx, "CUS-5002")
		require.NoError(t, err)
		assert.Equal(t, []byte("bcrypt-hash"), got)
		assert.True(t, s.Exists("otp:CUS-5002"))
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		got, err := repo.GetCode(ctx, "CUS-0000")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TTL", func(t *testing.T) {
		require.NoError(t, repo.SaveCode(ctx, "CUS-ttl", []byte("h"), time.Minute))
		s.FastForward(2 * time.Minute)

		got, err := repo.GetCode(ctx, "CUS-ttl")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.SaveCode(ctx, "CUS-del", []byte("h"), time.Hour))
		require.NoError(t, repo.DeleteCode(ctx, "CUS-del"))
		assert.False(t, s.Exists("otp:CUS-del"))
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.SetError("LOADING")
		defer s.SetError("")

		_, err := repo.GetCode(ctx, "CUS-5002")
		assert.Error(t, err)
	})
}

func TestRedisCodeStore_NilClient(t *testing.T) {
	repo := NewRedisCodeStore(nil)
	ctx := context.Background()

	assert.Error(t, repo.SaveCode(ctx, "x", nil, time.Second))
	_, err := repo.GetCode(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, repo.DeleteCode(ctx, "x"))
}
