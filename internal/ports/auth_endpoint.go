package ports

import (
	"context"

	"github.com/bnema/fleet-cli/internal/domain"
)

type AuthEndpoint interface {
	Login(ctx context.Context, creds domain.LoginCredentials) (domain.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenGrant, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, accessToken string) (domain.UserProfile, error)
}
