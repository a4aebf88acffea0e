package postgres

import (
	"context"
	"strings"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/repository"
)

// TokenCipher seals access tokens before they reach the database.
type TokenCipher interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

type CredentialStore struct {
	db     DB
	cipher TokenCipher
}

func NewCredentialStore(db DB, cipher TokenCipher) *CredentialStore {
	return &CredentialStore{db: db, cipher: cipher}
}

var _ repository.CredentialStore = (*CredentialStore)(nil)

func (s *CredentialStore) seal(op string, userID string, externalUserID int64, token string) (*entity.ExternalCredential, error) {
	if token == "" {
		return nil, apperror.Validation(op, "access token is required")
	}
	sealed, err := s.cipher.Seal(token)
	if err != nil {
		return nil, apperror.Technical(op, err)
	}
	return entity.NewExternalCredential(userID, externalUserID, sealed)
}

// Save stores the credential, replacing one a concurrent sign-in may have
// written for the same user.
func (s *CredentialStore) Save(ctx context.Context, userID string, externalUserID int64, token string) error {
	c, err := s.seal("credential.save", userID, externalUserID, token)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO external_credentials (user_id, external_user_id, encrypted_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET external_user_id = EXCLUDED.external_user_id,
		    encrypted_token = EXCLUDED.encrypted_token,
		    updated_at = now()
	`, c.UserID, c.ExternalUserID, c.EncryptedToken)
	return mapError("credential.save", "credential not found", err)
}

// Update rotates the token. An externalUserID of zero keeps the stored one,
// since providers do not always repeat it on later sign-ins.
func (s *CredentialStore) Update(ctx context.Context, userID string, externalUserID int64, token string) error {
	const op = "credential.update"
	if strings.TrimSpace(userID) == "" {
		return apperror.Validation(op, "user id is required")
	}
	if token == "" {
		return apperror.Validation(op, "access token is required")
	}
	if externalUserID < 0 {
		externalUserID = 0
	}
	sealed, err := s.cipher.Seal(token)
	if err != nil {
		return apperror.Technical(op, err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE external_credentials
		SET external_user_id = COALESCE(NULLIF($2::bigint, 0), external_user_id),
		    encrypted_token = $3, updated_at = now()
		WHERE user_id = $1
	`, userID, externalUserID, sealed)
	if err != nil {
		return mapError(op, "credential not found", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound(op, "credential not found")
	}
	return nil
}

func (s *CredentialStore) FindTokenByUserID(ctx context.Context, userID string) (string, error) {
	var sealed string
	err := s.db.QueryRow(ctx, `SELECT encrypted_token FROM external_credentials WHERE user_id = $1`, userID).Scan(&sealed)
	if err != nil {
		return "", mapError("credential.find", "credential not found", err)
	}
	token, err := s.cipher.Open(sealed)
	if err != nil {
		return "", apperror.Technical("credential.find", err)
	}
	return token, nil
}

// Delete is idempotent.
func (s *CredentialStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM external_credentials WHERE user_id = $1`, userID)
	return mapError("credential.delete", "credential not found", err)
}
