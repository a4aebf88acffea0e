package repository

import "context"

// CredentialStore keeps one external access token per user. Tokens cross
// this interface in plaintext; implementations encrypt at rest.
type CredentialStore interface {
	// Save creates the credential or replaces the user's existing one.
	// It returns NotFound when the user does not exist.
	Save(ctx context.Context, userID string, externalUserID int64, token string) error
	// Update rotates an existing credential and returns NotFound when the
	// user has none. An externalUserID of zero keeps the stored one.
	Update(ctx context.Context, userID string, externalUserID int64, token string) error
	FindTokenByUserID(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) error
}
