package postgres

import (
	"context"
	"time"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/repository"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
)

const userColumns = `id, username, email, created_at, updated_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, "user.find_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username valueobject.Username) (*entity.User, error) {
	return r.findOne(ctx, "user.find_by_username", `SELECT `+userColumns+` FROM users WHERE username = $1`, username.String())
}

func (r *UserRepository) FindByEmail(ctx context.Context, email valueobject.Email) (*entity.User, error) {
	return r.findOne(ctx, "user.find_by_email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email.String())
}

func (r *UserRepository) findOne(ctx context.Context, op, query string, arg string) (*entity.User, error) {
	var (
		id, username, email  string
		createdAt, updatedAt time.Time
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&id, &username, &email, &createdAt, &updatedAt)
	if err != nil {
		return nil, mapError(op, "user not found", err)
	}
	u, err := entity.ReconstituteUser(id, username, email, createdAt, updatedAt)
	if err != nil {
		return nil, apperror.Technical(op, err)
	}
	return u, nil
}

// Save inserts u and stamps it with the database timestamps.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) (*entity.User, error) {
	var createdAt, updatedAt time.Time
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, username, email)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, u.ID(), u.Username().String(), u.Email().String()).Scan(&createdAt, &updatedAt)
	if err != nil {
		return nil, mapError("user.save", "user not found", err)
	}
	u.Stamp(createdAt, updatedAt)
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	var updatedAt time.Time
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID(), u.Username().String(), u.Email().String()).Scan(&updatedAt)
	if err != nil {
		return mapError("user.update", "user not found", err)
	}
	u.Stamp(u.CreatedAt(), updatedAt)
	return nil
}

// Delete removes the user. Deleting a missing user is not an error so the
// call is safe to repeat during compensation.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return mapError("user.delete", "user not found", err)
}
