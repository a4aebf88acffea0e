package gateway

import (
	"context"
	"io"

	"github.com/collabhub/collabhub/internal/domain/entity"
)

// ProfileDocument is what the search index knows about a developer.
type ProfileDocument struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
	Location  string `json:"location"`
	Company   string `json:"company"`
}

func NewProfileDocument(u *entity.User, p *entity.Profile) ProfileDocument {
	return ProfileDocument{
		UserID:    u.ID(),
		Username:  u.Username().String(),
		Name:      p.Name(),
		AvatarURL: p.AvatarURL(),
		Bio:       p.Bio(),
		Location:  p.Location(),
		Company:   p.Company(),
	}
}

// ProfileIndex makes developer profiles discoverable.
type ProfileIndex interface {
	Index(ctx context.Context, doc ProfileDocument) error
	Remove(ctx context.Context, userID string) error
	Search(ctx context.Context, query string, size int) ([]ProfileDocument, error)
}

// AvatarStore uploads avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error)
}
