package entity

import (
	"strings"
	"time"

	"github.com/collabhub/collabhub/internal/domain/apperror"
)

// ExternalCredential stores the provider access token, already encrypted,
// for a user. Rotated in place on later sign-ins.
type ExternalCredential struct {
	UserID         string
	ExternalUserID int64
	EncryptedToken string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewExternalCredential(userID string, externalUserID int64, encryptedToken string) (*ExternalCredential, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.Validation("credential.new", "user id is required")
	}
	if externalUserID <= 0 {
		return nil, apperror.Validation("credential.new", "external user id is required")
	}
	if encryptedToken == "" {
		return nil, apperror.Validation("credential.new", "token is required")
	}
	now := time.Now().UTC()
	return &ExternalCredential{
		UserID:         userID,
		ExternalUserID: externalUserID,
		EncryptedToken: encryptedToken,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Rotate replaces the sealed token.
func (c *ExternalCredential) Rotate(externalUserID int64, encryptedToken string) {
	c.ExternalUserID = externalUserID
	c.EncryptedToken = encryptedToken
	c.UpdatedAt = time.Now().UTC()
}
