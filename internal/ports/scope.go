package ports

import (
	"context"

	"github.com/bnema/fleet-cli/internal/domain"
)

type ScopeProvider interface {
	CurrentScope(ctx context.Context) (domain.Scope, bool)
}
