package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/bnema/fleet-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/fleet-cli/internal/adapters/secrets/pass"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/rs/zerolog"
)

// Store writes to primary and falls back when it is unavailable. Deletes hit
// both backends so a cleared key can never resurface from the fallback.
type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
	logger   zerolog.Logger
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNilPrimaryStore  = errors.New("primary secret store is nil")
	errNilFallbackStore = errors.New("fallback secret store is nil")
)

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "secret-chain").Logger()
	}
}

func NewStore(primary ports.SecretStore, fallback ports.SecretStore, opts ...Option) *Store {
	store, err := NewStoreChecked(primary, fallback, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(primary ports.SecretStore, fallback ports.SecretStore, opts ...Option) (*Store, error) {
	if primary == nil {
		return nil, errNilPrimaryStore
	}
	if fallback == nil {
		return nil, errNilFallbackStore
	}

	store := &Store{primary: primary, fallback: fallback, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

func NewPassFirstWithFileFallback(passPrefix string, fileRoot string, opts ...Option) (*Store, error) {
	return NewStoreChecked(passstore.NewStore(passPrefix), filestore.NewStore(fileRoot), opts...)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		if delErr := s.fallback.Delete(ctx, key); delErr != nil {
			s.logger.Debug().Err(delErr).Str("key", key).Msg("drop stale fallback copy")
		}
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	s.logger.Debug().Err(err).Str("key", key).Msg("primary put failed, using fallback")
	fallbackErr := s.fallback.Put(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("primary backend put failed: %w; fallback backend put failed: %w", err, fallbackErr)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}
	if errors.Is(err, domain.ErrSecretNotFound) && errors.Is(fallbackErr, domain.ErrSecretNotFound) {
		return "", fmt.Errorf("secret %q: %w", key, domain.ErrSecretNotFound)
	}

	return "", fmt.Errorf("primary backend get failed: %w; fallback backend get failed: %w", err, fallbackErr)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Delete(ctx, key)
	switch {
	case err == nil && fallbackErr == nil:
		return nil
	case err == nil:
		return fmt.Errorf("fallback backend delete failed: %w", fallbackErr)
	case fallbackErr == nil:
		s.logger.Debug().Err(err).Str("key", key).Msg("primary delete failed, fallback cleared")
		return nil
	default:
		return fmt.Errorf("primary backend delete failed: %w; fallback backend delete failed: %w", err, fallbackErr)
	}
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
