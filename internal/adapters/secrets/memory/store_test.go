package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTripAndDelete(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session/credentials", "payload"))

	got, err := store.Get(ctx, "session/credentials")
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	require.NoError(t, store.Delete(ctx, "session/credentials"))
	require.NoError(t, store.Delete(ctx, "session/credentials"))

	_, err = store.Get(ctx, "session/credentials")
	assert.True(t, errors.Is(err, domain.ErrSecretNotFound))
}
