package ports

import (
	"context"

	"github.com/bnema/fleet-cli/internal/domain"
)

// CredentialStore persists the session credential group. Implementations
// never surface storage failures: a failed Load reports nothing persisted and
// failed writes are dropped.
type CredentialStore interface {
	Load(ctx context.Context) (domain.Credentials, bool)
	Save(ctx context.Context, creds domain.Credentials)
	Clear(ctx context.Context)
}
