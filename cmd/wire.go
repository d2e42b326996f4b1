package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bnema/fleet-cli/internal/adapters/auth"
	"github.com/bnema/fleet-cli/internal/adapters/credentials"
	"github.com/bnema/fleet-cli/internal/adapters/querycache"
	sessionrender "github.com/bnema/fleet-cli/internal/adapters/render/session"
	"github.com/bnema/fleet-cli/internal/adapters/resource"
	chainstore "github.com/bnema/fleet-cli/internal/adapters/secrets/chain"
	filestore "github.com/bnema/fleet-cli/internal/adapters/secrets/file"
	memorystore "github.com/bnema/fleet-cli/internal/adapters/secrets/memory"
	passstore "github.com/bnema/fleet-cli/internal/adapters/secrets/pass"
	redisstore "github.com/bnema/fleet-cli/internal/adapters/secrets/redis"
	"github.com/bnema/fleet-cli/internal/adapters/transport"
	"github.com/bnema/fleet-cli/internal/application"
	"github.com/bnema/fleet-cli/internal/config"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/logging"
	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const connectTimeout = 5 * time.Second

type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	secrets    ports.SecretStore
	sessions   *application.SessionManager
	scope      *application.ScopeSelector
	cache      *querycache.Cache
	devices    *resource.Client[domain.Device]
	tickets    *resource.Client[domain.Ticket]
	users      *resource.Client[domain.User]
	gps        *resource.Client[domain.GPSUnit]
	plcs       *resource.Client[domain.PLC]
	httpClient *http.Client
	now        func() time.Time
	closers    []func() error

	sessionRenderer func(sessionrender.Status, sessionrender.RenderOptions) (string, error)
}

func wireApp() (*app, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	a := &app{
		cfg:             cfg,
		logger:          logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr}),
		httpClient:      &http.Client{},
		now:             time.Now,
		sessionRenderer: sessionrender.Render,
	}

	a.secrets, err = a.newSecretStore()
	if err != nil {
		return nil, fmt.Errorf("wire secret store %q: %w", cfg.Session.Store, err)
	}

	credentialStore := credentials.NewStore(a.secrets,
		credentials.WithKey(cfg.Session.Key),
		credentials.WithLogger(a.logger),
	)
	authEndpoint := auth.Endpoint{
		API:            auth.DefaultAPI(cfg.API.BaseURL),
		HTTPClient:     a.httpClient,
		RequestTimeout: cfg.API.Timeout,
	}

	a.cache = querycache.New(querycache.WithLogger(a.logger))
	a.sessions = application.NewSessionManager(credentialStore, authEndpoint,
		application.WithLogger(a.logger),
		application.WithIdleTimeout(cfg.Session.IdleTimeout),
		application.WithExpirySkew(cfg.Session.ExpirySkew),
		application.WithCacheInvalidator(a.cache),
	)

	a.scope = application.NewScopeSelector(cfg.Scope.Param, a.cache)
	a.scope.FallbackToUser(a.sessions)
	a.scope.Set(cfg.Scope.Customer)

	interceptor, err := transport.New(cfg.API.BaseURL, a.sessions,
		transport.WithHTTPClient(a.httpClient),
		transport.WithScope(a.scope, cfg.Scope.Prefixes...),
		transport.WithRequestTimeout(cfg.API.Timeout),
		transport.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("wire request interceptor: %w", err)
	}

	if err := a.wireResources(interceptor); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) newSecretStore() (ports.SecretStore, error) {
	session := a.cfg.Session
	switch session.Store {
	case config.StoreFile:
		return filestore.NewStore(session.Dir), nil
	case config.StorePass:
		return passstore.NewStore(session.PassPrefix), nil
	case config.StoreChain:
		return chainstore.NewPassFirstWithFileFallback(session.PassPrefix, session.Dir, chainstore.WithLogger(a.logger))
	case config.StoreMemory:
		return memorystore.NewStore(), nil
	case config.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		store, err := redisstore.Connect(ctx, a.cfg.Redis.URL, a.cfg.Redis.Prefix, redisstore.WithTTL(a.cfg.Redis.TTL))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown secret store %q", session.Store)
	}
}

func (a *app) wireResources(sender resource.Sender) error {
	var err error
	if a.devices, err = newResourceClient(a, resource.DeviceConfig(), sender); err != nil {
		return err
	}
	if a.tickets, err = newResourceClient(a, resource.TicketConfig(), sender); err != nil {
		return err
	}
	if a.users, err = newResourceClient(a, resource.UserConfig(), sender); err != nil {
		return err
	}
	if a.gps, err = newResourceClient(a, resource.GPSConfig(), sender); err != nil {
		return err
	}
	if a.plcs, err = newResourceClient(a, resource.PLCConfig(), sender); err != nil {
		return err
	}
	return nil
}

func newResourceClient[T any](a *app, cfg resource.Config[T], sender resource.Sender) (*resource.Client[T], error) {
	cfg.CacheTTL = a.cfg.Cache.TTL
	client, err := resource.New(cfg, sender, resource.WithCache(a.cache), resource.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("wire %s client: %w", cfg.BasePath, err)
	}
	return client, nil
}

func (a *app) close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}
	a.closers = nil
	return errors.Join(errs...)
}
