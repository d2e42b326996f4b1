package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/fleet-cli/internal/adapters/credentials"
	"github.com/bnema/fleet-cli/internal/adapters/secrets/memory"
	"github.com/bnema/fleet-cli/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: baseTime}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingCache struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func signToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()

	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return raw
}

func userToken(t *testing.T, username string, expires time.Time) string {
	t.Helper()

	return signToken(t, jwtlib.MapClaims{"user_id": "u-" + username, "username": username, "exp": expires.Unix()})
}

func newCredentialStore() *credentials.Store {
	return credentials.NewStore(memory.NewStore())
}

func seedStore(t *testing.T, store *credentials.Store, creds domain.Credentials) {
	t.Helper()

	store.Save(context.Background(), creds)
	_, ok := store.Load(context.Background())
	require.True(t, ok)
}

func anyCtx() interface{} {
	return mock.Anything
}
