package ports

import (
	"context"

	"github.com/bnema/fleet-cli/internal/domain"
)

// ResourceClient is the CRUD surface of one declaratively configured
// resource. Search reports domain.ErrOperationDisabled when the resource has
// no search endpoint. Update reports false when the server accepted the
// change without returning the entity.
type ResourceClient[T any] interface {
	List(ctx context.Context, params domain.ListParams) (domain.Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, payload any) (T, error)
	Update(ctx context.Context, id string, partial map[string]any) (T, bool, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, term string, limit int) (domain.Page[T], error)
}
