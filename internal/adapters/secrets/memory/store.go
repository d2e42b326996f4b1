package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
)

// Store is a process-local SecretStore. Nothing survives a restart.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{values: map[string]string{}}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("memory secret %q: %w", key, domain.ErrSecretNotFound)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
