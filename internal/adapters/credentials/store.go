package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

const DefaultKey = "session/credentials"

// Store keeps the whole credential group in one secret so it is written and
// cleared as a unit.
type Store struct {
	secrets ports.SecretStore
	key     string
	logger  zerolog.Logger
	mu      sync.Mutex
}

var _ ports.CredentialStore = (*Store)(nil)

type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "credential-store").Logger()
	}
}

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func NewStore(secrets ports.SecretStore, opts ...Option) *Store {
	s := &Store{secrets: secrets, key: DefaultKey, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Load(ctx context.Context) (domain.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.secrets.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, domain.ErrSecretNotFound) {
			s.logger.Warn().Err(err).Msg("credential load failed")
		}
		return domain.Credentials{}, false
	}

	creds, err := decode(raw)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored credentials unreadable")
		return domain.Credentials{}, false
	}
	if !creds.Complete() {
		return domain.Credentials{}, false
	}

	return creds, true
}

// Save persists creds. An incomplete group clears whatever was stored.
func (s *Store) Save(ctx context.Context, creds domain.Credentials) {
	if !creds.Complete() {
		s.Clear(ctx)
		return
	}

	data, err := toml.Marshal(toSchema(creds))
	if err != nil {
		s.logger.Warn().Err(err).Msg("credential encode failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.secrets.Put(ctx, s.key, string(data)); err != nil {
		s.logger.Warn().Err(err).Msg("credential save failed")
	}
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.secrets.Delete(ctx, s.key); err != nil {
		s.logger.Warn().Err(err).Msg("credential clear failed")
	}
}

func decode(raw string) (domain.Credentials, error) {
	var doc documentSchema
	if err := toml.Unmarshal([]byte(raw), &doc); err != nil {
		return domain.Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	if err := doc.validateVersion(); err != nil {
		return domain.Credentials{}, err
	}
	doc.applyDefaults()

	return fromSchema(doc), nil
}
