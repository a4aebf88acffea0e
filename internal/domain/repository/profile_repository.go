package repository

import (
	"context"

	"github.com/collabhub/collabhub/internal/domain/entity"
)

// ProfileRepository persists profiles keyed by user id.
type ProfileRepository interface {
	Create(ctx context.Context, data entity.ProfileData) (*entity.Profile, error)
	FindByUserID(ctx context.Context, userID string) (*entity.Profile, error)
	Update(ctx context.Context, p *entity.Profile) error
	Delete(ctx context.Context, userID string) error
}
