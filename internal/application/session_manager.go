package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/fleet-cli/internal/adapters/token"
	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultIdleTimeout    = 30 * time.Minute
	DefaultExpirySkew     = 30 * time.Second
	DefaultLogoutTimeout  = 5 * time.Second
	activityPersistEvery  = time.Minute
	refreshFlightKey      = "refresh"
	sessionExpiredMessage = "Your session has expired. Please sign in again."
	userUnresolvedMessage = "Signed in, but the user profile could not be loaded."
	invalidLoginMessage   = "Invalid username or password."
	genericFailureMessage = "Sign-in failed. Please try again."
)

type SessionManager struct {
	state  *SessionState
	store  ports.CredentialStore
	auth   ports.AuthEndpoint
	cache  ports.CacheInvalidator
	clock  ports.Clock
	logger zerolog.Logger

	idleTimeout   time.Duration
	expirySkew    time.Duration
	logoutTimeout time.Duration

	refreshes singleflight.Group
	initMu    sync.Mutex

	persistMu     sync.Mutex
	lastPersisted time.Time
}

var _ ports.SessionAuthority = (*SessionManager)(nil)

type SessionOption func(*SessionManager)

func WithClock(clock ports.Clock) SessionOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) SessionOption {
	return func(m *SessionManager) {
		m.logger = logger.With().Str("component", "session").Logger()
	}
}

func WithIdleTimeout(timeout time.Duration) SessionOption {
	return func(m *SessionManager) {
		if timeout > 0 {
			m.idleTimeout = timeout
		}
	}
}

func WithExpirySkew(skew time.Duration) SessionOption {
	return func(m *SessionManager) {
		if skew >= 0 {
			m.expirySkew = skew
		}
	}
}

// WithCacheInvalidator registers the cache that logout and login flush.
func WithCacheInvalidator(cache ports.CacheInvalidator) SessionOption {
	return func(m *SessionManager) {
		m.cache = cache
	}
}

func WithState(state *SessionState) SessionOption {
	return func(m *SessionManager) {
		if state != nil {
			m.state = state
		}
	}
}

func NewSessionManager(store ports.CredentialStore, auth ports.AuthEndpoint, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		state:         NewSessionState(),
		store:         store,
		auth:          auth,
		clock:         ports.SystemClock{},
		logger:        zerolog.Nop(),
		idleTimeout:   DefaultIdleTimeout,
		expirySkew:    DefaultExpirySkew,
		logoutTimeout: DefaultLogoutTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) Snapshot() domain.Session {
	return m.state.Snapshot()
}

// Login authenticates and persists the session. On failure the session keeps
// its previous contents, is marked unauthenticated and carries the error.
func (m *SessionManager) Login(ctx context.Context, creds domain.LoginCredentials) (domain.Session, error) {
	m.state.update(func(s *domain.Session) {
		s.Loading = true
		s.Error = ""
	})

	grant, err := m.auth.Login(ctx, creds)
	if err == nil && grant.RefreshToken == "" {
		err = fmt.Errorf("%w: login response missing refresh token", domain.ErrMalformedResponse)
	}
	if err != nil {
		return m.failLogin(err), err
	}

	user, err := m.resolveLoginUser(ctx, grant)
	if err != nil {
		return m.failLogin(err), err
	}

	now := m.clock.Now()
	session := m.state.update(func(s *domain.Session) {
		s.AccessToken = grant.AccessToken
		s.RefreshToken = grant.RefreshToken
		s.User = &user
		s.Authenticated = true
		s.Initialized = true
		s.Loading = false
		s.LastActivity = now
		s.Error = ""
	})
	m.persist(ctx, session)
	m.invalidateCache()

	m.logger.Debug().Str("user", user.Username).Msg("logged in")
	return session, nil
}

func (m *SessionManager) resolveLoginUser(ctx context.Context, grant domain.TokenGrant) (domain.UserProfile, error) {
	if grant.User != nil && !grant.User.IsZero() {
		return *grant.User, nil
	}
	if user, ok := token.DecodeUser(grant.AccessToken); ok {
		return user, nil
	}

	user, err := m.auth.Me(ctx, grant.AccessToken)
	if err != nil {
		m.logger.Debug().Err(err).Msg("profile lookup after login failed")
		return domain.UserProfile{}, domain.ErrUserUnresolved
	}
	if user.IsZero() {
		return domain.UserProfile{}, domain.ErrUserUnresolved
	}
	return user, nil
}

func (m *SessionManager) failLogin(err error) domain.Session {
	message := genericFailureMessage
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		message = invalidLoginMessage
	case errors.Is(err, domain.ErrUserUnresolved):
		message = userUnresolvedMessage
	}

	return m.state.update(func(s *domain.Session) {
		s.Authenticated = false
		s.Loading = false
		s.Error = message
	})
}

// Logout always ends with an empty session and an empty store, whatever the
// server says.
func (m *SessionManager) Logout(ctx context.Context) {
	snapshot := m.state.Snapshot()
	if snapshot.AccessToken != "" {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.logoutTimeout)
		if err := m.auth.Logout(logoutCtx, snapshot.AccessToken); err != nil {
			m.logger.Warn().Err(err).Msg("remote logout failed")
		}
		cancel()
	}

	m.clear(ctx, "")
	m.invalidateCache()
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share one request; a caller whose ctx ends stops waiting but the
// shared refresh still completes and lands in the session.
func (m *SessionManager) Refresh(ctx context.Context) (domain.TokenGrant, error) {
	result := m.refreshes.DoChan(refreshFlightKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return domain.TokenGrant{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return domain.TokenGrant{}, res.Err
		}
		return res.Val.(domain.TokenGrant), nil
	}
}

func (m *SessionManager) refresh(ctx context.Context) (domain.TokenGrant, error) {
	refreshToken := m.state.Snapshot().RefreshToken
	if refreshToken == "" {
		if stored, ok := m.store.Load(ctx); ok {
			refreshToken = stored.RefreshToken
		}
	}
	if refreshToken == "" {
		m.clear(ctx, sessionExpiredMessage)
		return domain.TokenGrant{}, domain.ErrNoRefreshToken
	}

	m.logger.Debug().Msg("refreshing access token")
	grant, err := m.auth.Refresh(ctx, refreshToken)
	if err != nil {
		m.logger.Warn().Err(err).Msg("token refresh failed")
		m.clear(ctx, sessionExpiredMessage)
		return domain.TokenGrant{}, fmt.Errorf("%w: %w", domain.ErrSessionExpired, err)
	}

	user, ok := m.resolveRefreshUser(ctx, grant)
	if !ok {
		m.clear(ctx, sessionExpiredMessage)
		return domain.TokenGrant{}, fmt.Errorf("%w: %w", domain.ErrSessionExpired, domain.ErrUserUnresolved)
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	grant.User = &user

	now := m.clock.Now()
	session := m.state.update(func(s *domain.Session) {
		s.AccessToken = grant.AccessToken
		s.RefreshToken = grant.RefreshToken
		s.User = &user
		s.Authenticated = true
		s.Initialized = true
		s.LastActivity = now
		s.Error = ""
	})
	m.persist(ctx, session)

	m.logger.Debug().Msg("access token refreshed")
	return grant, nil
}

func (m *SessionManager) resolveRefreshUser(ctx context.Context, grant domain.TokenGrant) (domain.UserProfile, bool) {
	if stored, ok := m.store.Load(ctx); ok && stored.User != nil {
		return *stored.User, true
	}
	if current := m.state.Snapshot().User; current != nil && !current.IsZero() {
		return *current, true
	}
	if grant.User != nil && !grant.User.IsZero() {
		return *grant.User, true
	}
	return token.DecodeUser(grant.AccessToken)
}

func (m *SessionManager) RefreshIfStale(ctx context.Context, failedToken string) (string, error) {
	snapshot := m.state.Snapshot()
	if snapshot.Authenticated && snapshot.AccessToken != "" && snapshot.AccessToken != failedToken {
		return snapshot.AccessToken, nil
	}

	grant, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return grant.AccessToken, nil
}

// Initialize restores the session from the store once per process. Later
// calls return the current user without touching the session.
func (m *SessionManager) Initialize(ctx context.Context) *domain.UserProfile {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if current := m.state.Snapshot(); current.Initialized {
		return current.User
	}

	stored, ok := m.store.Load(ctx)
	if !ok || stored.AccessToken == "" {
		m.state.update(func(s *domain.Session) { s.Initialized = true })
		return nil
	}

	if token.Expired(stored.AccessToken, m.clock.Now(), m.expirySkew) {
		m.state.update(func(s *domain.Session) {
			s.RefreshToken = stored.RefreshToken
		})
		grant, err := m.Refresh(ctx)
		if err != nil {
			m.logger.Debug().Err(err).Msg("stored session could not be renewed")
			m.state.update(func(s *domain.Session) { s.Initialized = true })
			return nil
		}
		return grant.User
	}

	user := stored.User
	if user == nil || user.IsZero() {
		if decoded, ok := token.DecodeUser(stored.AccessToken); ok {
			user = &decoded
		}
	}
	if user == nil {
		m.clear(ctx, "")
		return nil
	}

	lastActivity := stored.LastActivity
	if lastActivity.IsZero() {
		lastActivity = m.clock.Now()
	}
	session := m.state.update(func(s *domain.Session) {
		s.AccessToken = stored.AccessToken
		s.RefreshToken = stored.RefreshToken
		s.User = user
		s.Authenticated = true
		s.Initialized = true
		s.LastActivity = lastActivity
		s.Error = ""
	})
	return session.User
}

// CheckTimeout ends sessions whose token can no longer be renewed or that
// have been idle longer than the idle timeout.
func (m *SessionManager) CheckTimeout(ctx context.Context) domain.TimeoutResult {
	snapshot := m.state.Snapshot()
	if !snapshot.Authenticated {
		return domain.TimeoutResult{}
	}

	now := m.clock.Now()
	if token.Expired(snapshot.AccessToken, now, m.expirySkew) {
		if _, err := m.Refresh(ctx); err != nil {
			m.Logout(ctx)
			return domain.TimeoutResult{TimedOut: true, Reason: "access token expired and could not be renewed"}
		}
		return domain.TimeoutResult{}
	}

	if !snapshot.LastActivity.IsZero() {
		idle := now.Sub(snapshot.LastActivity)
		if idle > m.idleTimeout {
			m.Logout(ctx)
			return domain.TimeoutResult{TimedOut: true, Reason: fmt.Sprintf("idle for %s", idle.Truncate(time.Second))}
		}
	}

	return domain.TimeoutResult{}
}

// RecordActivity marks the session as used. The store is written at most
// once a minute.
func (m *SessionManager) RecordActivity(ctx context.Context) {
	now := m.clock.Now()
	session := m.state.update(func(s *domain.Session) {
		if s.Authenticated {
			s.LastActivity = now
		}
	})
	if !session.Authenticated {
		return
	}

	m.persistMu.Lock()
	due := now.Sub(m.lastPersisted) >= activityPersistEvery
	if due {
		m.lastPersisted = now
	}
	m.persistMu.Unlock()

	if due {
		m.store.Save(ctx, session.Credentials())
	}
}

func (m *SessionManager) persist(ctx context.Context, session domain.Session) {
	m.store.Save(ctx, session.Credentials())

	m.persistMu.Lock()
	m.lastPersisted = session.LastActivity
	m.persistMu.Unlock()
}

func (m *SessionManager) clear(ctx context.Context, message string) {
	m.state.update(func(s *domain.Session) {
		*s = domain.Session{Initialized: true, Error: message}
	})
	m.store.Clear(ctx)
}

func (m *SessionManager) invalidateCache() {
	if m.cache != nil {
		m.cache.InvalidateAll()
	}
}
