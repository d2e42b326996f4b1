package fakeapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errTokenRejected = errors.New("token rejected")

type accessClaims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
	CustomerName string `json:"customer_Name,omitempty"`
	Generation   int    `json:"gen"`
	jwtlib.RegisteredClaims
}

func (s *Server) mintAccess(profile domain.UserProfile) (string, error) {
	now := s.clock.Now()
	claims := accessClaims{
		UserID:       profile.ID,
		Username:     profile.Username,
		Email:        profile.Email,
		Role:         profile.Role,
		CustomerName: profile.CustomerName,
		Generation:   s.generation,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   profile.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// verifyAccess checks signature, expiry against the server clock, and that
// the token was minted after the last ExpireAccessTokens call.
func (s *Server) verifyAccess(header string) (accessClaims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return accessClaims{}, errTokenRejected
	}

	var claims accessClaims
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return s.clock.Now() }),
	)
	token, err := parser.ParseWithClaims(raw, &claims, func(*jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return accessClaims{}, errTokenRejected
	}
	if claims.Generation != s.generation {
		return accessClaims{}, errTokenRejected
	}
	return claims, nil
}
