package repository

import (
	"context"

	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
)

// UserRepository defines the interface for user persistence.
// Lookups return an apperror of kind NotFound when nothing matches; Save
// returns kind Conflict when id, username or email is already taken.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByUsername(ctx context.Context, username valueobject.Username) (*entity.User, error)
	FindByEmail(ctx context.Context, email valueobject.Email) (*entity.User, error)
	Save(ctx context.Context, u *entity.User) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
}
