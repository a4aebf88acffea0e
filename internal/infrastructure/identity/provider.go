// Package identity is the identity provider adapter: GitHub OAuth sign-in
// and password identities, both recorded in a Redis-backed registry.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/gateway"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
	"github.com/collabhub/collabhub/pkg/helpers"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes.
	MaxPasswordLength = 72
)

type Provider struct {
	github   *GitHubClient
	registry *Registry
	stateTTL time.Duration
	logger   *logrus.Logger
}

func NewProvider(github *GitHubClient, registry *Registry, stateTTL time.Duration, logger *logrus.Logger) *Provider {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &Provider{github: github, registry: registry, stateTTL: stateTTL, logger: logger}
}

var _ gateway.IdentityProvider = (*Provider)(nil)

// BeginGitHubSignIn records a one-time state and returns the GitHub
// authorization URL.
func (p *Provider) BeginGitHubSignIn(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := p.registry.SaveState(ctx, state, p.stateTTL); err != nil {
		return "", apperror.Technical("github.begin", err)
	}
	return p.github.AuthCodeURL(state), nil
}

func (p *Provider) CompleteGitHubSignIn(ctx context.Context, state, code string) (*entity.ExternalIdentity, error) {
	const op = "github.complete"
	if state == "" || code == "" {
		return nil, apperror.Validation(op, "missing state or code")
	}
	ok, err := p.registry.ConsumeState(ctx, state)
	if err != nil {
		return nil, apperror.Technical(op, err)
	}
	if !ok {
		return nil, apperror.Validation(op, "sign-in request expired, please try again")
	}

	acct, err := p.github.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Provider(op, "github sign-in failed", err)
	}
	if acct.ID <= 0 || acct.AccessToken == "" {
		return nil, apperror.Provider(op, "github returned an incomplete account", nil)
	}

	primary := ""
	if len(acct.Emails) > 0 {
		primary = strings.ToLower(acct.Emails[0])
	}
	id, isNew, err := p.registry.ResolveGitHub(ctx, acct.ID, primary)
	if err != nil {
		return nil, apperror.Technical(op, err)
	}

	return &entity.ExternalIdentity{
		ID:             id,
		Provider:       entity.ProviderGitHub,
		ExternalUserID: acct.ID,
		Emails:         acct.Emails,
		IsNewIdentity:  isNew,
		AccessToken:    acct.AccessToken,
		Profile: entity.ProfileAttributes{
			DisplayName:   acct.Name,
			LoginHandle:   acct.Login,
			AvatarURL:     acct.AvatarURL,
			Bio:           acct.Bio,
			HTMLURL:       acct.HTMLURL,
			Company:       acct.Company,
			Location:      acct.Location,
			TwitterHandle: acct.TwitterUsername,
			Blog:          acct.Blog,
		},
	}, nil
}

// SignUpWithPassword mints a password identity. The username is only
// checked for shape here; uniqueness is decided during onboarding.
func (p *Provider) SignUpWithPassword(ctx context.Context, email, password, username string) (*entity.ExternalIdentity, error) {
	const op = "password.sign_up"
	addr, err := valueobject.NewEmail(email)
	if err != nil {
		return nil, err
	}
	handle, err := valueobject.NewUsername(username)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return nil, apperror.Validation(op, "password must be 8 to 72 characters")
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, apperror.Technical(op, err)
	}
	id, err := p.registry.RegisterPassword(ctx, addr.String(), hash)
	if errors.Is(err, ErrEmailRegistered) {
		return nil, apperror.Conflict(op, "email already registered", err)
	}
	if err != nil {
		return nil, apperror.Technical(op, err)
	}

	return &entity.ExternalIdentity{
		ID:            id,
		Provider:      entity.ProviderPassword,
		Emails:        []string{addr.String()},
		IsNewIdentity: true,
		Profile:       entity.ProfileAttributes{LoginHandle: handle.String()},
	}, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*entity.ExternalIdentity, error) {
	const op = "password.sign_in"
	denied := apperror.Unauthorized(op, "invalid email or password")

	addr, err := valueobject.NewEmail(email)
	if err != nil {
		return nil, denied
	}
	id, hash, err := p.registry.PasswordIdentity(ctx, addr.String())
	if errors.Is(err, ErrUnknownIdentity) {
		return nil, denied
	}
	if err != nil {
		return nil, apperror.Technical(op, err)
	}
	if !helpers.CompareHashAndPassword(hash, password) {
		return nil, denied
	}
	return &entity.ExternalIdentity{
		ID:       id,
		Provider: entity.ProviderPassword,
		Emails:   []string{addr.String()},
	}, nil
}

// ChangeLoginEmail keeps a password identity's login in step with the
// user's email. Other providers own their emails.
func (p *Provider) ChangeLoginEmail(ctx context.Context, id string, oldEmail, newEmail valueobject.Email) error {
	const op = "password.change_email"
	if !strings.HasPrefix(id, "pw_") {
		return nil
	}
	err := p.registry.UpdatePasswordEmail(ctx, id, oldEmail.String(), newEmail.String())
	if errors.Is(err, ErrEmailRegistered) {
		return apperror.Conflict(op, "email already registered", err)
	}
	if err != nil {
		return apperror.Technical(op, err)
	}
	return nil
}

func (p *Provider) DeleteIdentity(ctx context.Context, id string) error {
	if err := p.registry.Delete(ctx, id); err != nil {
		if p.logger != nil {
			p.logger.WithError(err).WithField("identity_id", id).Warn("identity delete failed")
		}
		return err
	}
	return nil
}
