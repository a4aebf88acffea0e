package entity

import (
	"time"

	"github.com/collabhub/collabhub/internal/domain/apperror"
)

const MaxBioLength = 1000

type SocialLinkType string

const (
	SocialGitHub   SocialLinkType = "github"
	SocialTwitter  SocialLinkType = "twitter"
	SocialLinkedIn SocialLinkType = "linkedin"
	SocialWebsite  SocialLinkType = "website"
	SocialGitLab   SocialLinkType = "gitlab"
)

type SocialLink struct {
	Type SocialLinkType `json:"type" validate:"required,oneof=github twitter linkedin website gitlab"`
	URL  string         `json:"url" validate:"required,http_url"`
}

// Experience is a work history entry. A nil EndDate means current position.
type Experience struct {
	Company   string     `json:"company" validate:"required,max=100"`
	Position  string     `json:"position" validate:"required,max=100"`
	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type ProjectShowcase struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"required,max=500"`
	URL         string `json:"url" validate:"required,http_url"`
}

// ProfileData is the mutable content of a profile.
type ProfileData struct {
	UserID      string            `json:"user_id" validate:"required"`
	Name        string            `json:"name" validate:"max=100"`
	AvatarURL   string            `json:"avatar_url" validate:"omitempty,http_url"`
	Bio         string            `json:"bio" validate:"max=1000"`
	Location    string            `json:"location" validate:"max=100"`
	Company     string            `json:"company" validate:"max=100"`
	SocialLinks []SocialLink      `json:"social_links" validate:"dive"`
	Experiences []Experience      `json:"experiences" validate:"dive"`
	Projects    []ProjectShowcase `json:"projects" validate:"dive"`
}

// Profile is the public face of a user, 1:1 with User.
type Profile struct {
	data      ProfileData
	updatedAt time.Time
}

// NewProfile validates data and builds a profile.
func NewProfile(data ProfileData) (*Profile, error) {
	if err := validateProfile(data); err != nil {
		return nil, err
	}
	return &Profile{data: cloneProfileData(data), updatedAt: time.Now().UTC()}, nil
}

// ReconstituteProfile rebuilds a stored profile, re-validating it.
func ReconstituteProfile(data ProfileData, updatedAt time.Time) (*Profile, error) {
	p, err := NewProfile(data)
	if err != nil {
		return nil, err
	}
	p.updatedAt = updatedAt
	return p, nil
}

func (p *Profile) UserID() string            { return p.data.UserID }
func (p *Profile) Name() string              { return p.data.Name }
func (p *Profile) AvatarURL() string         { return p.data.AvatarURL }
func (p *Profile) Bio() string               { return p.data.Bio }
func (p *Profile) Location() string          { return p.data.Location }
func (p *Profile) Company() string           { return p.data.Company }
func (p *Profile) SocialLinks() []SocialLink { return append([]SocialLink(nil), p.data.SocialLinks...) }
func (p *Profile) Experiences() []Experience { return append([]Experience(nil), p.data.Experiences...) }
func (p *Profile) Projects() []ProjectShowcase {
	return append([]ProjectShowcase(nil), p.data.Projects...)
}
func (p *Profile) UpdatedAt() time.Time { return p.updatedAt }
func (p *Profile) Data() ProfileData    { return cloneProfileData(p.data) }

// Stamp sets the timestamp assigned by the store.
func (p *Profile) Stamp(updatedAt time.Time) { p.updatedAt = updatedAt }

// Replace swaps the profile content. The user id cannot change.
func (p *Profile) Replace(data ProfileData) error {
	data.UserID = p.data.UserID
	if err := validateProfile(data); err != nil {
		return err
	}
	p.data = cloneProfileData(data)
	p.updatedAt = time.Now().UTC()
	return nil
}

// ChangeAvatar sets a new avatar URL.
func (p *Profile) ChangeAvatar(url string) error {
	next := p.Data()
	next.AvatarURL = url
	return p.Replace(next)
}

// SocialLink returns the link of the given type, if any.
func (p *Profile) SocialLink(t SocialLinkType) (SocialLink, bool) {
	for _, l := range p.data.SocialLinks {
		if l.Type == t {
			return l, true
		}
	}
	return SocialLink{}, false
}

func validateProfile(d ProfileData) error {
	if err := validate.Struct(d); err != nil {
		return structError("profile.validate", err)
	}
	seen := make(map[SocialLinkType]struct{}, len(d.SocialLinks))
	for _, l := range d.SocialLinks {
		if _, dup := seen[l.Type]; dup {
			return apperror.Validation("profile.validate", "only one "+string(l.Type)+" link is allowed")
		}
		seen[l.Type] = struct{}{}
	}
	for _, e := range d.Experiences {
		if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
			return apperror.Validation("profile.validate", "experience end date must not precede start date")
		}
	}
	return nil
}

func cloneProfileData(d ProfileData) ProfileData {
	d.SocialLinks = append([]SocialLink(nil), d.SocialLinks...)
	d.Experiences = append([]Experience(nil), d.Experiences...)
	d.Projects = append([]ProjectShowcase(nil), d.Projects...)
	return d
}
