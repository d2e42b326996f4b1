package session

import (
	"testing"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func signedIn(lastActivity time.Time) domain.Session {
	return domain.Session{
		AccessToken:   "tok",
		RefreshToken:  "ref",
		Authenticated: true,
		Initialized:   true,
		LastActivity:  lastActivity,
		User: &domain.UserProfile{
			ID:           "7",
			Username:     "alice",
			FirstName:    "Alice",
			LastName:     "Smith",
			Role:         "dispatcher",
			CustomerName: "Acme",
		},
	}
}

func TestRenderSignedInSession(t *testing.T) {
	output, err := Render(Status{
		Session:        signedIn(now.Add(-10 * time.Minute)),
		TokenExpiresAt: now.Add(4*time.Minute + 30*time.Second),
		Scope:          domain.Scope{Param: "customer_Name", Value: "Acme"},
	}, RenderOptions{Now: now, IdleTimeout: 30 * time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "Fleet Session")
	assert.Contains(t, output, "Alice Smith (alice)")
	assert.Contains(t, output, "role: dispatcher")
	assert.Contains(t, output, "scope: customer_Name=Acme")
	assert.Contains(t, output, "expires in 4m30s")
	assert.Contains(t, output, "20m00s left")
	assert.Contains(t, output, "[================--------]")
}

func TestRenderExpiredTokenAndIdleTimeout(t *testing.T) {
	output, err := Render(Status{
		Session:        signedIn(now.Add(-40 * time.Minute)),
		TokenExpiresAt: now.Add(-time.Minute),
	}, RenderOptions{Now: now, IdleTimeout: 30 * time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "expired (renews on next request)")
	assert.Contains(t, output, "timed out")
	assert.Contains(t, output, "[------------------------]")
	assert.NotContains(t, output, "scope:")
}

func TestRenderSignedOutShowsLastError(t *testing.T) {
	output, err := Render(Status{
		Session: domain.Session{Initialized: true, Error: "Your session has expired. Please sign in again."},
	}, RenderOptions{Now: now, IdleTimeout: 30 * time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "Not signed in.")
	assert.Contains(t, output, "Your session has expired")
}

func TestRenderTokenWithoutExpiry(t *testing.T) {
	output, err := Render(Status{Session: signedIn(time.Time{})}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "access token: no expiry")
	assert.NotContains(t, output, "idle:")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m05s", formatDuration(2*time.Minute+5*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
