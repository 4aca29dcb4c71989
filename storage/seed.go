package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hashfleet/hashfleet/password"
	"github.com/hashfleet/hashfleet/roles"
)

// Default credentials for a freshly provisioned deployment. The seeded user
// carries the requires_password_change role, so the first login is forced
// through password rotation before anything else is permitted.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "changeme"
)

// SeedDefaultAdmin creates the default admin account when the user store is
// empty. It is a no-op on any already-provisioned deployment.
func SeedDefaultAdmin(ctx context.Context, users UserRepository, hasher password.Hasher) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Info().Str("username", DefaultAdminUsername).Msg("seeding default admin user")

	hash, err := hasher.Hash(DefaultAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash default admin password: %w", err)
	}

	return users.Create(ctx, &User{
		Username:     DefaultAdminUsername,
		PasswordHash: hash,
		Roles:        []string{roles.Admin, roles.RequiresPasswordChange},
	})
}
