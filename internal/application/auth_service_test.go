package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/collabhub/collabhub/internal/application"
	"github.com/collabhub/collabhub/internal/application/onboarding"
	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
)

type authHarness struct {
	identities *mockIdentities
	onboarder  *mockOnboarder
	users      *mockUsers
	svc        *application.AuthService
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	h := &authHarness{
		identities: new(mockIdentities),
		onboarder:  new(mockOnboarder),
		users:      new(mockUsers),
	}
	sessions, _ := newSessions(t, h.users)
	h.svc = application.NewAuthService(h.identities, h.onboarder, h.users, sessions, nil)
	return h
}

func githubIdentity(isNew bool) *entity.ExternalIdentity {
	return &entity.ExternalIdentity{
		ID:             "gh_1",
		Provider:       entity.ProviderGitHub,
		ExternalUserID: 1,
		Emails:         []string{"a@x.com"},
		IsNewIdentity:  isNew,
		AccessToken:    "tok",
		Profile:        entity.ProfileAttributes{LoginHandle: "alice"},
	}
}

func TestAuthService_GitHubCallbackOnboardsNewIdentity(t *testing.T) {
	h := newAuthHarness(t)
	u := testUser(t, "gh_1", "alice", "a@x.com")
	ident := githubIdentity(true)
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "state", "code").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).
		Return(&onboarding.Outcome{UserID: "gh_1", IsNew: true, User: u, State: onboarding.StateCompleted}, nil)

	res, err := h.svc.GitHubCallback(context.Background(), "state", "code")

	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Equal(t, "gh_1", res.User.ID())
	assert.NotEmpty(t, res.Tokens.AccessToken)
	h.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	h.identities.AssertNotCalled(t, "DeleteIdentity", mock.Anything, mock.Anything)
}

func TestAuthService_ReturningIdentityLoadsUser(t *testing.T) {
	h := newAuthHarness(t)
	u := testUser(t, "gh_1", "alice", "a@x.com")
	ident := githubIdentity(false)
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "state", "code").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).
		Return(&onboarding.Outcome{UserID: "gh_1", State: onboarding.StateCompleted}, nil)
	h.users.On("FindByID", mock.Anything, "gh_1").Return(u, nil).Once()

	res, err := h.svc.GitHubCallback(context.Background(), "state", "code")

	require.NoError(t, err)
	assert.False(t, res.IsNew)
	assert.Equal(t, "alice", res.User.Username().String())
	h.users.AssertExpectations(t)
}

func TestAuthService_ProviderFailureSkipsOnboarding(t *testing.T) {
	h := newAuthHarness(t)
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "state", "bad").
		Return(nil, apperror.Provider("github.complete", "github sign-in failed", errors.New("bad_verification_code")))

	_, err := h.svc.GitHubCallback(context.Background(), "state", "bad")

	require.Error(t, err)
	assert.Equal(t, apperror.KindProvider, apperror.KindOf(err))
	h.onboarder.AssertNotCalled(t, "Onboard", mock.Anything, mock.Anything)
}

func TestAuthService_RejectedNewIdentityIsReleased(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "conflict", err: apperror.Conflict("onboarding.duplicate_check", "email already registered", nil)},
		{name: "validation", err: apperror.Validation("username.new", "username is reserved")},
		{name: "technical", err: apperror.Technical("onboarding.create_profile", errors.New("db down"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAuthHarness(t)
			ident := &entity.ExternalIdentity{
				ID: "pw_1", Provider: entity.ProviderPassword, IsNewIdentity: true,
				Emails: []string{"a@x.com"}, Profile: entity.ProfileAttributes{LoginHandle: "alice"},
			}
			h.identities.On("SignUpWithPassword", mock.Anything, "a@x.com", "password1", "alice").Return(ident, nil)
			h.onboarder.On("Onboard", mock.Anything, *ident).Return(nil, tt.err)
			h.users.On("FindByID", mock.Anything, "pw_1").Return(nil, apperror.NotFound("user.find", "user not found"))
			h.identities.On("DeleteIdentity", mock.Anything, "pw_1").Return(nil).Once().
				Run(func(args mock.Arguments) {
					_, ok := args.Get(0).(context.Context).Deadline()
					assert.True(t, ok, "release must be bounded")
				})

			_, err := h.svc.SignUp(context.Background(), "a@x.com", "password1", "alice")

			require.Error(t, err)
			assert.Equal(t, apperror.KindOf(tt.err), apperror.KindOf(err))
			h.identities.AssertExpectations(t)
		})
	}
}

func TestAuthService_ReleaseFailureKeepsOriginalError(t *testing.T) {
	h := newAuthHarness(t)
	ident := githubIdentity(true)
	cause := apperror.Conflict("onboarding.duplicate_check", "username already taken", nil)
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "s", "c").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).Return(nil, cause)
	h.users.On("FindByID", mock.Anything, "gh_1").Return(nil, apperror.NotFound("user.find", "user not found"))
	h.identities.On("DeleteIdentity", mock.Anything, "gh_1").Return(errors.New("redis down"))

	_, err := h.svc.GitHubCallback(context.Background(), "s", "c")

	assert.Same(t, cause, err)
}

func TestAuthService_OrphanedIdentityIsOnboardedAgain(t *testing.T) {
	h := newAuthHarness(t)
	u := testUser(t, "gh_1", "alice", "a@x.com")
	returning := githubIdentity(false)
	fresh := *returning
	fresh.IsNewIdentity = true

	h.identities.On("CompleteGitHubSignIn", mock.Anything, "s", "c").Return(returning, nil)
	h.onboarder.On("Onboard", mock.Anything, *returning).
		Return(nil, apperror.NotFound("credential.save", "user not found")).Once()
	h.users.On("FindByID", mock.Anything, "gh_1").Return(nil, apperror.NotFound("user.find", "user not found")).Once()
	h.onboarder.On("Onboard", mock.Anything, fresh).
		Return(&onboarding.Outcome{UserID: "gh_1", IsNew: true, User: u, State: onboarding.StateCompleted}, nil).Once()

	res, err := h.svc.GitHubCallback(context.Background(), "s", "c")

	require.NoError(t, err)
	assert.True(t, res.IsNew)
	h.onboarder.AssertExpectations(t)
}

func TestAuthService_FailedRunKeepsIdentityBackingAnAccount(t *testing.T) {
	h := newAuthHarness(t)
	u := testUser(t, "gh_1", "alice", "a@x.com")
	ident := githubIdentity(true)
	cause := apperror.Technical("onboarding.rotate_credential", errors.New("db down"))
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "s", "c").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).Return(nil, cause)
	h.users.On("FindByID", mock.Anything, "gh_1").Return(u, nil)

	_, err := h.svc.GitHubCallback(context.Background(), "s", "c")

	assert.Same(t, cause, err)
	h.identities.AssertNotCalled(t, "DeleteIdentity", mock.Anything, mock.Anything)
}

func TestAuthService_UnknownAccountStateKeepsIdentity(t *testing.T) {
	h := newAuthHarness(t)
	ident := githubIdentity(true)
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "s", "c").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).
		Return(nil, apperror.Conflict("user.save", "already exists", nil))
	h.users.On("FindByID", mock.Anything, "gh_1").Return(nil, apperror.Technical("user.find", errors.New("db down")))

	_, err := h.svc.GitHubCallback(context.Background(), "s", "c")

	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	h.identities.AssertNotCalled(t, "DeleteIdentity", mock.Anything, mock.Anything)
}

// A second callback for the same identity can arrive while the first one is
// still onboarding. It must sign in to the account the first one created
// rather than onboard again or delete the identity.
func TestAuthService_ReturningIdentityRacingFirstSignIn(t *testing.T) {
	h := newAuthHarness(t)
	u := testUser(t, "gh_1", "alice", "a@x.com")
	ident := githubIdentity(false)
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "s", "c").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).
		Return(nil, apperror.NotFound("credential.save", "user not found")).Once()
	h.users.On("FindByID", mock.Anything, "gh_1").Return(u, nil).Once()

	res, err := h.svc.GitHubCallback(context.Background(), "s", "c")

	require.NoError(t, err)
	assert.False(t, res.IsNew)
	assert.Equal(t, "gh_1", res.User.ID())
	h.onboarder.AssertExpectations(t)
	h.identities.AssertNotCalled(t, "DeleteIdentity", mock.Anything, mock.Anything)
}

func TestAuthService_OrphanedPasswordIdentityIsNotFound(t *testing.T) {
	h := newAuthHarness(t)
	ident := &entity.ExternalIdentity{ID: "pw_1", Provider: entity.ProviderPassword, Emails: []string{"a@x.com"}}
	h.identities.On("SignInWithPassword", mock.Anything, "a@x.com", "password1").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).Return(&onboarding.Outcome{UserID: "pw_1"}, nil).Once()
	h.users.On("FindByID", mock.Anything, "pw_1").Return(nil, apperror.NotFound("user.find", "user not found"))

	_, err := h.svc.SignIn(context.Background(), "a@x.com", "password1")

	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	h.onboarder.AssertExpectations(t)
	h.identities.AssertNotCalled(t, "DeleteIdentity", mock.Anything, mock.Anything)
}

func TestAuthService_WrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	h.identities.On("SignInWithPassword", mock.Anything, "a@x.com", "nope").
		Return(nil, apperror.Unauthorized("password.sign_in", "invalid email or password"))

	_, err := h.svc.SignIn(context.Background(), "a@x.com", "nope")

	assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	h.onboarder.AssertNotCalled(t, "Onboard", mock.Anything, mock.Anything)
}

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	h := newAuthHarness(t)
	u := testUser(t, "gh_1", "alice", "a@x.com")
	ident := githubIdentity(true)
	h.identities.On("CompleteGitHubSignIn", mock.Anything, "s", "c").Return(ident, nil)
	h.onboarder.On("Onboard", mock.Anything, *ident).
		Return(&onboarding.Outcome{UserID: "gh_1", IsNew: true, User: u}, nil)

	res, err := h.svc.GitHubCallback(context.Background(), "s", "c")
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(context.Background(), "gh_1"))

	_, err = h.svc.Sessions.Validate(context.Background(), res.Tokens.AccessToken)
	assert.ErrorIs(t, err, application.ErrInvalidSession)
}
