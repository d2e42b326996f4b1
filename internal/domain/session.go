package domain

import (
	"strings"
	"time"
)

type UserProfile struct {
	ID           string `json:"id" toml:"id"`
	Username     string `json:"username" toml:"username"`
	Email        string `json:"email,omitempty" toml:"email,omitempty"`
	FirstName    string `json:"first_name,omitempty" toml:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty" toml:"last_name,omitempty"`
	Role         string `json:"role,omitempty" toml:"role,omitempty"`
	CustomerName string `json:"customer_Name,omitempty" toml:"customer_name,omitempty"`
}

func (u UserProfile) IsZero() bool {
	return strings.TrimSpace(u.ID) == "" && strings.TrimSpace(u.Username) == ""
}

func (u UserProfile) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case full != "":
		return full
	case u.Username != "":
		return u.Username
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

type LoginCredentials struct {
	Username   string
	Password   string
	RememberMe bool
}

// TokenGrant is the normalized result of a login or refresh call.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
}

// Credentials is the persisted group. It is only meaningful when complete.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
	LastActivity time.Time
}

func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.AccessToken) != "" &&
		strings.TrimSpace(c.RefreshToken) != "" &&
		c.User != nil && !c.User.IsZero()
}

type Session struct {
	AccessToken   string
	RefreshToken  string
	User          *UserProfile
	Authenticated bool
	Initialized   bool
	Loading       bool
	LastActivity  time.Time
	Error         string
}

// Normalize enforces that an authenticated session always carries both tokens
// and a user. Losing any of them drops authentication and the refresh token.
func (s Session) Normalize() Session {
	if s.AccessToken == "" || s.RefreshToken == "" || s.User == nil || s.User.IsZero() {
		if s.Authenticated {
			s.RefreshToken = ""
		}
		s.Authenticated = false
	}
	return s
}

func (s Session) Credentials() Credentials {
	return Credentials{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         s.User,
		LastActivity: s.LastActivity,
	}
}

type Scope struct {
	Param string
	Value string
}

func (s Scope) Empty() bool {
	return strings.TrimSpace(s.Value) == ""
}

type TimeoutResult struct {
	TimedOut bool
	Reason   string
}
