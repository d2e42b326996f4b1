package application

import (
	"context"
	"strings"
	"sync"

	"github.com/bnema/fleet-cli/internal/domain"
	"github.com/bnema/fleet-cli/internal/ports"
)

const DefaultScopeParam = "customer_Name"

// ScopeSelector holds the customer the operator is currently looking at.
// Switching customers flushes the cache because cached lists were filtered
// by the previous scope.
type ScopeSelector struct {
	mu       sync.RWMutex
	param    string
	value    string
	fallback func() string
	cache    ports.CacheInvalidator
}

var _ ports.ScopeProvider = (*ScopeSelector)(nil)

func NewScopeSelector(param string, cache ports.CacheInvalidator) *ScopeSelector {
	if strings.TrimSpace(param) == "" {
		param = DefaultScopeParam
	}
	return &ScopeSelector{param: param, cache: cache}
}

// FallbackToUser scopes requests to the signed-in user's customer when no
// customer was selected explicitly.
func (s *ScopeSelector) FallbackToUser(session interface{ Snapshot() domain.Session }) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fallback = func() string {
		if user := session.Snapshot().User; user != nil {
			return user.CustomerName
		}
		return ""
	}
}

func (s *ScopeSelector) Set(value string) {
	value = strings.TrimSpace(value)

	s.mu.Lock()
	changed := s.value != value
	s.value = value
	s.mu.Unlock()

	if changed && s.cache != nil {
		s.cache.InvalidateAll()
	}
}

func (s *ScopeSelector) Clear() {
	s.Set("")
}

func (s *ScopeSelector) CurrentScope(context.Context) (domain.Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value := s.value
	if value == "" && s.fallback != nil {
		value = s.fallback()
	}
	scope := domain.Scope{Param: s.param, Value: value}
	return scope, !scope.Empty()
}
