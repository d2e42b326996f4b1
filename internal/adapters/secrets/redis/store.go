package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
	goredis "github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL = errors.New("empty redis connection URL")
	ErrParseConnection    = errors.New("failed to parse redis connection string")
)

// Store keeps secrets as plain redis strings under a key prefix. It lets
// several operator shells on one host share a session.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

var _ ports.SecretStore = (*Store)(nil)

type Option func(*Store)

// WithTTL expires stored values. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func NewStore(client *goredis.Client, prefix string, opts ...Option) *Store {
	s := &Store{client: client, prefix: strings.TrimSuffix(prefix, ":")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect parses url, builds a client and verifies it with PING.
func Connect(ctx context.Context, url string, prefix string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(url) == "" {
		return nil, ErrEmptyConnectionURL
	}

	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrParseConnection, err)
	}

	client := goredis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewStore(client, prefix, opts...), nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis put %q: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", fmt.Errorf("redis secret %q: %w", key, domain.ErrSecretNotFound)
		}
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
