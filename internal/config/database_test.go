package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostgresConnection_InvalidURL(t *testing.T) {
	db, err := NewPostgresConnection("invalid://malformed")
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestParseRedisURL(t *testing.T) {
	t.Run("valid_url", func(t *testing.T) {
		opts, err := ParseRedisURL("redis://:pw@cache.internal:6380/2")
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, "pw", opts.Password)
		assert.Equal(t, 2, opts.DB)
	})

	t.Run("invalid_scheme", func(t *testing.T) {
		_, err := ParseRedisURL("http://cache.internal")
		assert.ErrorContains(t, err, "invalid REDIS_URL")
	})
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, "redis://127.0.0.1:1/0")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewMongoClient_InvalidURI(t *testing.T) {
	client, err := NewMongoClient(context.Background(), "not-a-mongo-uri")
	assert.Error(t, err)
	assert.Nil(t, client)
}
