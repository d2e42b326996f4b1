package ports

import (
	"context"

	"github.com/bnema/fleet-cli/internal/domain"
)

// SessionAuthority is the slice of the session manager the request pipeline
// depends on.
type SessionAuthority interface {
	Snapshot() domain.Session
	// RefreshIfStale returns a usable access token for a request that failed
	// with failedToken, refreshing only when failedToken is still current.
	RefreshIfStale(ctx context.Context, failedToken string) (string, error)
	Logout(ctx context.Context)
	RecordActivity(ctx context.Context)
}
