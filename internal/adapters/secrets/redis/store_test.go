package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsEmptyURL(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "  ", "fleet")
	require.ErrorIs(t, err, ErrEmptyConnectionURL)
}

func TestConnectRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "http://localhost:6379", "fleet")
	require.ErrorIs(t, err, ErrParseConnection)
}

func TestStoreKeyPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fleet:session/credentials", NewStore(nil, "fleet:").key("session/credentials"))
	assert.Equal(t, "session/credentials", NewStore(nil, "").key("session/credentials"))
}

func TestStoreRoundTripAgainstLiveRedis(t *testing.T) {
	url := os.Getenv("FLEET_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FLEET_TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := Connect(ctx, url, "fleet-test", WithTTL(time.Minute))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	key := "session/" + t.Name()
	require.NoError(t, store.Put(ctx, key, "payload"))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.True(t, errors.Is(err, domain.ErrSecretNotFound))
}
