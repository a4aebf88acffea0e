package onboarding_test

import (
	"context"
	"sync"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	"github.com/collabhub/collabhub/internal/domain/valueobject"
)

// memState is an in-memory stand-in for Postgres plus the identity
// registry. failOn injects an error into the named operation.
type memState struct {
	mu         sync.Mutex
	users      map[string]*entity.User
	profiles   map[string]*entity.Profile
	creds      map[string]string
	identities map[string]bool
	failOn     map[string]error
}

func newMemState(identityIDs ...string) *memState {
	s := &memState{
		users:      map[string]*entity.User{},
		profiles:   map[string]*entity.Profile{},
		creds:      map[string]string{},
		identities: map[string]bool{},
		failOn:     map[string]error{},
	}
	for _, id := range identityIDs {
		s.identities[id] = true
	}
	return s
}

func (s *memState) fail(op string) error { return s.failOn[op] }

type memUsers struct{ *memState }

func (r memUsers) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, apperror.NotFound("user.find", "user not found")
}

func (r memUsers) FindByUsername(_ context.Context, username valueobject.Username) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username().Equals(username) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user.find", "user not found")
}

func (r memUsers) FindByEmail(_ context.Context, email valueobject.Email) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email().Equals(email) {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user.find", "user not found")
}

func (r memUsers) Save(_ context.Context, u *entity.User) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("user.save"); err != nil {
		return nil, err
	}
	if _, ok := r.users[u.ID()]; ok {
		return nil, apperror.Conflict("user.save", "user already exists", nil)
	}
	r.users[u.ID()] = u
	return u, nil
}

func (r memUsers) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID()] = u
	return nil
}

func (r memUsers) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	delete(r.creds, id)
	return nil
}

type memProfiles struct{ *memState }

func (r memProfiles) Create(_ context.Context, data entity.ProfileData) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("profile.create"); err != nil {
		return nil, err
	}
	p, err := entity.NewProfile(data)
	if err != nil {
		return nil, err
	}
	r.profiles[data.UserID] = p
	return p, nil
}

func (r memProfiles) FindByUserID(_ context.Context, userID string) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		return p, nil
	}
	return nil, apperror.NotFound("profile.find", "profile not found")
}

func (r memProfiles) Update(_ context.Context, p *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID()] = p
	return nil
}

func (r memProfiles) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, userID)
	return nil
}

type memCredentials struct{ *memState }

func (r memCredentials) Save(_ context.Context, userID string, _ int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("credential.save"); err != nil {
		return err
	}
	if _, ok := r.users[userID]; !ok {
		return apperror.NotFound("credential.save", "user not found")
	}
	r.creds[userID] = token
	return nil
}

func (r memCredentials) Update(_ context.Context, userID string, _ int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[userID]; !ok {
		return apperror.NotFound("credential.update", "credential not found")
	}
	r.creds[userID] = token
	return nil
}

func (r memCredentials) FindTokenByUserID(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tok, ok := r.creds[userID]; ok {
		return tok, nil
	}
	return "", apperror.NotFound("credential.find", "credential not found")
}

func (r memCredentials) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.creds, userID)
	return nil
}

type memIdentities struct{ *memState }

func (r memIdentities) DeleteIdentity(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.identities, id)
	return nil
}
