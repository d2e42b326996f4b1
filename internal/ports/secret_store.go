package ports

import "context"

// SecretStore is a flat key/value backend. Get returns an error wrapping
// domain.ErrSecretNotFound when the key is absent.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
