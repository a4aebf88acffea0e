package application_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/collabhub/collabhub/internal/application/onboarding"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/gateway"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockUsers) FindByUsername(ctx context.Context, username valueobject.Username) (*entity.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *mockUsers) FindByEmail(ctx context.Context, email valueobject.Email) (*entity.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

// Save echoes its input unless a user or an error is configured.
func (m *mockUsers) Save(ctx context.Context, u *entity.User) (*entity.User, error) {
	args := m.Called(ctx, u)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if saved, ok := args.Get(0).(*entity.User); ok && saved != nil {
		return saved, nil
	}
	return u, nil
}

func (m *mockUsers) Update(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUsers) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockProfiles struct{ mock.Mock }

// Create builds the profile from data unless an error is configured.
func (m *mockProfiles) Create(ctx context.Context, data entity.ProfileData) (*entity.Profile, error) {
	args := m.Called(ctx, data)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return entity.NewProfile(data)
}

func (m *mockProfiles) FindByUserID(ctx context.Context, userID string) (*entity.Profile, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*entity.Profile)
	return p, args.Error(1)
}

func (m *mockProfiles) Update(ctx context.Context, p *entity.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProfiles) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockCredentials struct{ mock.Mock }

func (m *mockCredentials) Save(ctx context.Context, userID string, externalUserID int64, token string) error {
	return m.Called(ctx, userID, externalUserID, token).Error(0)
}

func (m *mockCredentials) Update(ctx context.Context, userID string, externalUserID int64, token string) error {
	return m.Called(ctx, userID, externalUserID, token).Error(0)
}

func (m *mockCredentials) FindTokenByUserID(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockCredentials) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockIdentities struct{ mock.Mock }

func (m *mockIdentities) BeginGitHubSignIn(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockIdentities) CompleteGitHubSignIn(ctx context.Context, state, code string) (*entity.ExternalIdentity, error) {
	args := m.Called(ctx, state, code)
	ident, _ := args.Get(0).(*entity.ExternalIdentity)
	return ident, args.Error(1)
}

func (m *mockIdentities) SignUpWithPassword(ctx context.Context, email, password, username string) (*entity.ExternalIdentity, error) {
	args := m.Called(ctx, email, password, username)
	ident, _ := args.Get(0).(*entity.ExternalIdentity)
	return ident, args.Error(1)
}

func (m *mockIdentities) SignInWithPassword(ctx context.Context, email, password string) (*entity.ExternalIdentity, error) {
	args := m.Called(ctx, email, password)
	ident, _ := args.Get(0).(*entity.ExternalIdentity)
	return ident, args.Error(1)
}

func (m *mockIdentities) ChangeLoginEmail(ctx context.Context, id string, oldEmail, newEmail valueobject.Email) error {
	return m.Called(ctx, id, oldEmail.String(), newEmail.String()).Error(0)
}

func (m *mockIdentities) DeleteIdentity(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockOnboarder struct{ mock.Mock }

func (m *mockOnboarder) Onboard(ctx context.Context, ident entity.ExternalIdentity) (*onboarding.Outcome, error) {
	args := m.Called(ctx, ident)
	out, _ := args.Get(0).(*onboarding.Outcome)
	return out, args.Error(1)
}

type mockIndex struct{ mock.Mock }

func (m *mockIndex) Index(ctx context.Context, doc gateway.ProfileDocument) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *mockIndex) Remove(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockIndex) Search(ctx context.Context, query string, size int) ([]gateway.ProfileDocument, error) {
	args := m.Called(ctx, query, size)
	docs, _ := args.Get(0).([]gateway.ProfileDocument)
	return docs, args.Error(1)
}

type mockAvatars struct{ mock.Mock }

func (m *mockAvatars) Upload(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	args := m.Called(ctx, userID, filename, contentType)
	return args.String(0), args.Error(1)
}
