package credentials

import (
	"fmt"
	"time"

	"github.com/bnema/fleet-cli/internal/domain"
)

const currentSchemaVersion = 1

type documentSchema struct {
	Version      int         `toml:"version"`
	AccessToken  string      `toml:"access_token"`
	RefreshToken string      `toml:"refresh_token"`
	LastActivity string      `toml:"last_activity,omitempty"`
	User         *userSchema `toml:"user,omitempty"`
}

type userSchema struct {
	ID           string `toml:"id"`
	Username     string `toml:"username"`
	Email        string `toml:"email,omitempty"`
	FirstName    string `toml:"first_name,omitempty"`
	LastName     string `toml:"last_name,omitempty"`
	Role         string `toml:"role,omitempty"`
	CustomerName string `toml:"customer_name,omitempty"`
}

func (s *documentSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s documentSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported credentials schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

func toSchema(creds domain.Credentials) documentSchema {
	doc := documentSchema{
		Version:      currentSchemaVersion,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		LastActivity: formatTime(creds.LastActivity),
	}
	if creds.User != nil {
		doc.User = &userSchema{
			ID:           creds.User.ID,
			Username:     creds.User.Username,
			Email:        creds.User.Email,
			FirstName:    creds.User.FirstName,
			LastName:     creds.User.LastName,
			Role:         creds.User.Role,
			CustomerName: creds.User.CustomerName,
		}
	}
	return doc
}

func fromSchema(doc documentSchema) domain.Credentials {
	creds := domain.Credentials{
		AccessToken:  doc.AccessToken,
		RefreshToken: doc.RefreshToken,
		LastActivity: parseTime(doc.LastActivity),
	}
	if doc.User != nil {
		creds.User = &domain.UserProfile{
			ID:           doc.User.ID,
			Username:     doc.User.Username,
			Email:        doc.User.Email,
			FirstName:    doc.User.FirstName,
			LastName:     doc.User.LastName,
			Role:         doc.User.Role,
			CustomerName: doc.User.CustomerName,
		}
	}
	return creds
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
