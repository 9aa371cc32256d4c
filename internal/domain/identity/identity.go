// Package identity adapts the external user directory for the domain
// services. Profiles are optional everywhere: a missing or failing lookup
// yields nil profile fields, never an error.
package identity

import (
	"context"
	"errors"

	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"go.uber.org/zap"
)

// Directory is the read side of the user directory. Lookup accepts a
// user id or an email and returns repository.ErrNotFound when neither
// matches.
type Directory interface {
	Lookup(ctx context.Context, key string) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)
}

// Profile resolves one key.
func Profile(ctx context.Context, dir Directory, key string, log *zap.Logger) models.Profile {
	if dir == nil || key == "" {
		return models.Profile{Key: key}
	}
	u, err := dir.Lookup(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && log != nil {
			log.Warn("identity lookup failed", zap.String("key", key), zap.Error(err))
		}
		return models.Profile{Key: key}
	}
	return models.ProfileOf(key, *u)
}

// Profiles resolves keys in order.
func Profiles(ctx context.Context, dir Directory, keys []string, log *zap.Logger) []models.Profile {
	out := make([]models.Profile, 0, len(keys))
	for _, k := range keys {
		out = append(out, Profile(ctx, dir, k, log))
	}
	return out
}

// IDsByRole returns the ids of every user holding role. Lookup failures
// are logged and yield an empty list.
func IDsByRole(ctx context.Context, dir Directory, role string, log *zap.Logger) []string {
	if dir == nil {
		return nil
	}
	users, err := dir.ListByRole(ctx, role)
	if err != nil {
		if log != nil {
			log.Warn("identity role listing failed", zap.String("role", role), zap.Error(err))
		}
		return nil
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.Hex())
	}
	return ids
}
