package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/repository"
)

type ProfileRepository struct {
	db DB
}

func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)

// profileDocs holds the JSONB columns of a profile row.
type profileDocs struct {
	links, experiences, projects []byte
}

func encodeDocs(d entity.ProfileData) (profileDocs, error) {
	var (
		docs profileDocs
		err  error
	)
	if docs.links, err = marshalList(d.SocialLinks); err != nil {
		return docs, err
	}
	if docs.experiences, err = marshalList(d.Experiences); err != nil {
		return docs, err
	}
	docs.projects, err = marshalList(d.Projects)
	return docs, err
}

// marshalList encodes nil slices as [] so the NOT NULL columns stay arrays.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func (r *ProfileRepository) Create(ctx context.Context, data entity.ProfileData) (*entity.Profile, error) {
	p, err := entity.NewProfile(data)
	if err != nil {
		return nil, err
	}
	docs, err := encodeDocs(data)
	if err != nil {
		return nil, apperror.Technical("profile.create", err)
	}

	var updatedAt time.Time
	err = r.db.QueryRow(ctx, `
		INSERT INTO profiles (user_id, name, avatar_url, bio, location, company, social_links, experiences, projects)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING updated_at
	`, data.UserID, data.Name, data.AvatarURL, data.Bio, data.Location, data.Company,
		docs.links, docs.experiences, docs.projects).Scan(&updatedAt)
	if err != nil {
		return nil, mapError("profile.create", "profile not found", err)
	}
	p.Stamp(updatedAt)
	return p, nil
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*entity.Profile, error) {
	var (
		d         entity.ProfileData
		docs      profileDocs
		updatedAt time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT user_id, name, avatar_url, bio, location, company, social_links, experiences, projects, updated_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&d.UserID, &d.Name, &d.AvatarURL, &d.Bio, &d.Location, &d.Company,
		&docs.links, &docs.experiences, &docs.projects, &updatedAt)
	if err != nil {
		return nil, mapError("profile.find", "profile not found", err)
	}

	if err := json.Unmarshal(docs.links, &d.SocialLinks); err != nil {
		return nil, apperror.Technical("profile.find", err)
	}
	if err := json.Unmarshal(docs.experiences, &d.Experiences); err != nil {
		return nil, apperror.Technical("profile.find", err)
	}
	if err := json.Unmarshal(docs.projects, &d.Projects); err != nil {
		return nil, apperror.Technical("profile.find", err)
	}

	p, err := entity.ReconstituteProfile(d, updatedAt)
	if err != nil {
		return nil, apperror.Technical("profile.find", err)
	}
	return p, nil
}

func (r *ProfileRepository) Update(ctx context.Context, p *entity.Profile) error {
	d := p.Data()
	docs, err := encodeDocs(d)
	if err != nil {
		return apperror.Technical("profile.update", err)
	}

	var updatedAt time.Time
	err = r.db.QueryRow(ctx, `
		UPDATE profiles
		SET name = $2, avatar_url = $3, bio = $4, location = $5, company = $6,
		    social_links = $7, experiences = $8, projects = $9, updated_at = now()
		WHERE user_id = $1
		RETURNING updated_at
	`, d.UserID, d.Name, d.AvatarURL, d.Bio, d.Location, d.Company,
		docs.links, docs.experiences, docs.projects).Scan(&updatedAt)
	if err != nil {
		return mapError("profile.update", "profile not found", err)
	}
	p.Stamp(updatedAt)
	return nil
}

// Delete is idempotent.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM profiles WHERE user_id = $1`, userID)
	return mapError("profile.delete", "profile not found", err)
}
