package entity

import (
	"strings"
	"time"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
)

// User is the canonical local account. Its ID is issued by the external
// identity provider, never generated here.
type User struct {
	id        string
	username  valueobject.Username
	email     valueobject.Email
	createdAt time.Time
	updatedAt time.Time
}

// NewUser builds a user for signup.
func NewUser(id string, username valueobject.Username, email valueobject.Email) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.Validation("user.new", "user id is required")
	}
	if username.IsZero() || email.IsZero() {
		return nil, apperror.Validation("user.new", "username and email are required")
	}
	now := time.Now().UTC()
	return &User{id: id, username: username, email: email, createdAt: now, updatedAt: now}, nil
}

// ReconstituteUser rebuilds a user from storage, re-validating the stored
// username and email.
func ReconstituteUser(id, username, email string, createdAt, updatedAt time.Time) (*User, error) {
	un, err := valueobject.NewUsername(username)
	if err != nil {
		return nil, err
	}
	em, err := valueobject.NewEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := NewUser(id, un, em)
	if err != nil {
		return nil, err
	}
	u.createdAt = createdAt
	u.updatedAt = updatedAt
	return u, nil
}

func (u *User) ID() string                     { return u.id }
func (u *User) Username() valueobject.Username { return u.username }
func (u *User) Email() valueobject.Email       { return u.email }
func (u *User) CreatedAt() time.Time           { return u.createdAt }
func (u *User) UpdatedAt() time.Time           { return u.updatedAt }

// ChangeUsername reports whether the username changed.
func (u *User) ChangeUsername(username valueobject.Username) bool {
	if username.IsZero() || u.username.Equals(username) {
		return false
	}
	u.username = username
	u.touch()
	return true
}

// ChangeEmail reports whether the email changed.
func (u *User) ChangeEmail(email valueobject.Email) bool {
	if email.IsZero() || u.email.Equals(email) {
		return false
	}
	u.email = email
	u.touch()
	return true
}

// Stamp sets the timestamps assigned by the store.
func (u *User) Stamp(createdAt, updatedAt time.Time) {
	u.createdAt = createdAt
	u.updatedAt = updatedAt
}

func (u *User) touch() { u.updatedAt = time.Now().UTC() }
