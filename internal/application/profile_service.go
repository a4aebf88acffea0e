package application

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/gateway"
	repo "github.com/collabhub/collabhub/internal/domain/repository"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
)

const indexTimeout = 3 * time.Second

type ProfileView struct {
	User    *entity.User
	Profile *entity.Profile
}

type UpdateProfileInput struct {
	Name        string
	Bio         string
	Location    string
	Company     string
	SocialLinks []entity.SocialLink
	Experiences []entity.Experience
	Projects    []entity.ProjectShowcase
}

// ProfileService edits accounts after onboarding.
type ProfileService struct {
	Users       repo.UserRepository
	Profiles    repo.ProfileRepository
	Credentials repo.CredentialStore
	Identities  Identities
	Avatars     gateway.AvatarStore
	Index       gateway.ProfileIndex
	Sessions    *SessionService
	Logger      *logrus.Logger
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*ProfileView, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, u)
}

func (s *ProfileService) GetByUsername(ctx context.Context, raw string) (*ProfileView, error) {
	username, err := valueobject.NewUsername(raw)
	if err != nil {
		return nil, apperror.NotFound("profile.get", "user not found")
	}
	u, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, u)
}

func (s *ProfileService) view(ctx context.Context, u *entity.User) (*ProfileView, error) {
	p, err := s.Profiles.FindByUserID(ctx, u.ID())
	if err != nil {
		return nil, err
	}
	return &ProfileView{User: u, Profile: p}, nil
}

// Update replaces the editable profile fields. The avatar is only changed
// through UploadAvatar.
func (s *ProfileService) Update(ctx context.Context, userID string, in UpdateProfileInput) (*ProfileView, error) {
	v, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := v.Profile.Data()
	next.Name = in.Name
	next.Bio = in.Bio
	next.Location = in.Location
	next.Company = in.Company
	next.SocialLinks = in.SocialLinks
	next.Experiences = in.Experiences
	next.Projects = in.Projects
	if err := v.Profile.Replace(next); err != nil {
		return nil, err
	}
	if err := s.Profiles.Update(ctx, v.Profile); err != nil {
		return nil, err
	}
	s.reindex(ctx, v.User, v.Profile)
	return v, nil
}

func (s *ProfileService) ChangeUsername(ctx context.Context, userID, raw string) (*entity.User, error) {
	username, err := valueobject.NewUsername(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, userID, func() (*entity.User, error) {
		return s.Users.FindByUsername(ctx, username)
	}, "username already taken"); err != nil {
		return nil, err
	}
	if !u.ChangeUsername(username) {
		return u, nil
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.afterUserChange(ctx, u)
	return u, nil
}

// ChangeEmail moves the user to a new email. Password identities sign in
// with their email, so the identity follows first and is moved back when
// the local update fails.
func (s *ProfileService) ChangeEmail(ctx context.Context, userID, raw string) (*entity.User, error) {
	email, err := valueobject.NewEmail(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, userID, func() (*entity.User, error) {
		return s.Users.FindByEmail(ctx, email)
	}, "email already registered"); err != nil {
		return nil, err
	}

	old := u.Email()
	if !u.ChangeEmail(email) {
		return u, nil
	}
	if err := s.Identities.ChangeLoginEmail(ctx, userID, old, email); err != nil {
		return nil, err
	}
	if err := s.Users.Update(ctx, u); err != nil {
		if rErr := s.Identities.ChangeLoginEmail(context.WithoutCancel(ctx), userID, email, old); rErr != nil {
			s.log().WithError(rErr).WithField("user_id", userID).Error("login email rollback failed")
		}
		return nil, err
	}
	s.afterUserChange(ctx, u)
	return u, nil
}

func (s *ProfileService) ensureFree(ctx context.Context, userID string, lookup func() (*entity.User, error), msg string) error {
	other, err := lookup()
	switch {
	case apperror.KindOf(err) == apperror.KindNotFound:
		return nil
	case err != nil:
		return err
	case other.ID() != userID:
		return apperror.Conflict("profile.change", msg, nil)
	}
	return nil
}

func (s *ProfileService) afterUserChange(ctx context.Context, u *entity.User) {
	if s.Sessions != nil {
		s.Sessions.Sync(ctx, u)
	}
	p, err := s.Profiles.FindByUserID(ctx, u.ID())
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID()).Warn("profile reload failed")
		return
	}
	s.reindex(ctx, u, p)
}

// UploadAvatar stores the image and points the profile at it.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	v, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if s.Avatars == nil {
		return "", apperror.Technical("profile.avatar", errAvatarsDisabled)
	}
	url, err := s.Avatars.Upload(ctx, userID, r, filename, contentType)
	if err != nil {
		return "", err
	}
	if err := v.Profile.ChangeAvatar(url); err != nil {
		return "", err
	}
	if err := s.Profiles.Update(ctx, v.Profile); err != nil {
		return "", err
	}
	s.reindex(ctx, v.User, v.Profile)
	return url, nil
}

func (s *ProfileService) Search(ctx context.Context, q string, size int) ([]gateway.ProfileDocument, error) {
	if s.Index == nil {
		return []gateway.ProfileDocument{}, nil
	}
	c, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	docs, err := s.Index.Search(c, q, size)
	if err != nil {
		return nil, apperror.Technical("profile.search", err)
	}
	return docs, nil
}

// DeleteAccount removes local records in reverse creation order and the
// external identity last. It stops at the first failure so a retry resumes
// where it left off; every delete is idempotent.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	steps := []struct {
		name string
		run  func(context.Context, string) error
	}{
		{"credential", s.Credentials.Delete},
		{"profile", s.Profiles.Delete},
		{"user", s.Users.Delete},
		{"identity", s.Identities.DeleteIdentity},
	}
	for _, step := range steps {
		if err := step.run(ctx, userID); err != nil {
			s.log().WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"step":    step.name,
			}).Error("account deletion failed")
			return keepKind("account.delete_"+step.name, err)
		}
	}

	if s.Index != nil {
		c, cancel := context.WithTimeout(ctx, indexTimeout)
		if err := s.Index.Remove(c, userID); err != nil {
			s.log().WithError(err).WithField("user_id", userID).Warn("profile unindex failed")
		}
		cancel()
	}
	if s.Sessions != nil {
		if err := s.Sessions.Revoke(ctx, userID); err != nil {
			s.log().WithError(err).WithField("user_id", userID).Warn("session revoke failed")
		}
	}
	s.log().WithField("user_id", userID).Info("account deleted")
	return nil
}

func (s *ProfileService) reindex(ctx context.Context, u *entity.User, p *entity.Profile) {
	if s.Index == nil {
		return
	}
	c, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	if err := s.Index.Index(c, gateway.NewProfileDocument(u, p)); err != nil {
		s.log().WithError(err).WithField("user_id", u.ID()).Warn("es index failed")
	}
}

func (s *ProfileService) log() *logrus.Entry {
	return entryFor(s.Logger, "profile")
}
