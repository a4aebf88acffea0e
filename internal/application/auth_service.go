package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/internal/application/onboarding"
	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	repo "github.com/collabhub/collabhub/internal/domain/repository"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
	"github.com/collabhub/collabhub/pkg/helpers"
)

// Identities is the identity provider as the application services use it.
type Identities interface {
	BeginGitHubSignIn(ctx context.Context) (string, error)
	CompleteGitHubSignIn(ctx context.Context, state, code string) (*entity.ExternalIdentity, error)
	SignUpWithPassword(ctx context.Context, email, password, username string) (*entity.ExternalIdentity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*entity.ExternalIdentity, error)
	ChangeLoginEmail(ctx context.Context, id string, oldEmail, newEmail valueobject.Email) error
	DeleteIdentity(ctx context.Context, id string) error
}

type Onboarder interface {
	Onboard(ctx context.Context, ident entity.ExternalIdentity) (*onboarding.Outcome, error)
}

type SignInResult struct {
	User   *entity.User
	IsNew  bool
	Tokens TokenPair
}

// AuthService turns a provider sign-in into a local account and a session.
type AuthService struct {
	Identities Identities
	Onboarding Onboarder
	Users      repo.UserRepository
	Sessions   *SessionService
	Logger     *logrus.Logger
	// ReleaseTimeout bounds deleting a rejected identity. Zero means
	// onboarding.DefaultCompensationTimeout.
	ReleaseTimeout time.Duration
}

func NewAuthService(identities Identities, onboarder Onboarder, users repo.UserRepository, sessions *SessionService, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Identities: identities,
		Onboarding: onboarder,
		Users:      users,
		Sessions:   sessions,
		Logger:     logger,
	}
}

func (s *AuthService) GitHubLoginURL(ctx context.Context) (string, error) {
	return s.Identities.BeginGitHubSignIn(ctx)
}

func (s *AuthService) GitHubCallback(ctx context.Context, state, code string) (*SignInResult, error) {
	ident, err := s.Identities.CompleteGitHubSignIn(ctx, state, code)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, ident)
}

func (s *AuthService) SignUp(ctx context.Context, email, password, username string) (*SignInResult, error) {
	ident, err := s.Identities.SignUpWithPassword(ctx, email, password, username)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, ident)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	ident, err := s.Identities.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, ident)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	return s.Sessions.Refresh(ctx, refreshToken)
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.Sessions.Revoke(ctx, userID)
}

func (s *AuthService) complete(ctx context.Context, ident *entity.ExternalIdentity) (*SignInResult, error) {
	log := entryFor(s.Logger, "auth").WithFields(logrus.Fields{
		"identity_id": ident.ID,
		"provider":    ident.Provider,
	})

	out, err := s.Onboarding.Onboard(ctx, *ident)
	if err != nil {
		if ident.IsNewIdentity {
			if !s.hasAccount(ctx, log, ident.ID) {
				s.release(ctx, log, ident.ID)
			}
			return nil, err
		}
		if apperror.KindOf(err) == apperror.KindNotFound {
			u, lerr := s.Users.FindByID(ctx, ident.ID)
			if lerr == nil {
				log.Info("account created by a concurrent sign-in")
				return s.issue(ctx, log, u, false)
			}
			if apperror.KindOf(lerr) != apperror.KindNotFound {
				return nil, err
			}
			return s.reonboard(ctx, log, ident)
		}
		return nil, err
	}

	u := out.User
	if u == nil {
		u, err = s.Users.FindByID(ctx, out.UserID)
		if apperror.KindOf(err) == apperror.KindNotFound {
			return s.reonboard(ctx, log, ident)
		}
		if err != nil {
			return nil, err
		}
	}
	return s.issue(ctx, log, u, out.IsNew)
}

func (s *AuthService) issue(ctx context.Context, log *logrus.Entry, u *entity.User, isNew bool) (*SignInResult, error) {
	pair, err := s.Sessions.Issue(ctx, u)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"user_id": u.ID(),
		"is_new":  isNew,
		"email":   helpers.MaskEmail(u.Email().String()),
	}).Info("signed in")
	return &SignInResult{User: u, IsNew: isNew, Tokens: pair}, nil
}

// hasAccount reports whether a local user backs the identity. A failed
// lookup counts as yes so the identity is kept.
func (s *AuthService) hasAccount(ctx context.Context, log *logrus.Entry, id string) bool {
	_, err := s.Users.FindByID(ctx, id)
	switch {
	case err == nil:
		log.Warn("onboarding failed but identity backs an account, keeping it")
		return true
	case apperror.KindOf(err) == apperror.KindNotFound:
		return false
	default:
		log.WithError(err).Warn("account lookup failed, keeping identity")
		return true
	}
}

// release deletes a freshly minted identity whose onboarding failed, so a
// retry starts as a new identity again. Compensation may already have
// deleted it; deletion is idempotent.
func (s *AuthService) release(ctx context.Context, log *logrus.Entry, id string) {
	timeout := s.ReleaseTimeout
	if timeout <= 0 {
		timeout = onboarding.DefaultCompensationTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := s.Identities.DeleteIdentity(ctx, id); err != nil {
		log.WithError(err).Warn("releasing rejected identity failed")
	}
}

// reonboard recovers an identity that outlived its local account, which
// happens when compensation could not delete it. Only identities that carry
// a login handle can be onboarded again.
func (s *AuthService) reonboard(ctx context.Context, log *logrus.Entry, ident *entity.ExternalIdentity) (*SignInResult, error) {
	if ident.IsNewIdentity || ident.Profile.LoginHandle == "" {
		return nil, apperror.NotFound("auth.sign_in", "account not found")
	}
	log.Warn("identity has no local account, onboarding again")
	retry := *ident
	retry.IsNewIdentity = true
	return s.complete(ctx, &retry)
}
