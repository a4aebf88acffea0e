package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/collabhub/collabhub/internal/domain/entity"
)

const (
	identityKeyPrefix = "identity:"
	githubIndexPrefix = "identity:github:"
	emailIndexPrefix  = "identity:password:"
	oauthStatePrefix  = "oauth:state:"
)

var (
	ErrEmailRegistered = errors.New("identity: email already registered")
	ErrUnknownIdentity = errors.New("identity: unknown identity")
)

// Registry is the identity provider's own record of who has signed in. It
// decides whether an identity is new and owns the password hashes.
type Registry struct {
	rdb *redis.Client
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

func githubIdentityID(externalUserID int64) string {
	return "gh_" + strconv.FormatInt(externalUserID, 10)
}

// ResolveGitHub returns the identity id for a GitHub account and whether
// this call created it.
func (r *Registry) ResolveGitHub(ctx context.Context, externalUserID int64, email string) (string, bool, error) {
	id := githubIdentityID(externalUserID)
	indexKey := githubIndexPrefix + strconv.FormatInt(externalUserID, 10)

	created, err := r.rdb.SetNX(ctx, indexKey, id, 0).Result()
	if err != nil {
		return "", false, fmt.Errorf("resolve github identity: %w", err)
	}
	if !created {
		return id, false, nil
	}

	err = r.rdb.HSet(ctx, identityKeyPrefix+id, map[string]any{
		"provider":         entity.ProviderGitHub,
		"external_user_id": externalUserID,
		"email":            email,
		"created_at":       time.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		_ = r.rdb.Del(ctx, indexKey).Err()
		return "", false, fmt.Errorf("store github identity: %w", err)
	}
	return id, true, nil
}

// RegisterPassword mints a password identity for email.
func (r *Registry) RegisterPassword(ctx context.Context, email, passwordHash string) (string, error) {
	id := "pw_" + uuid.NewString()
	indexKey := emailIndexPrefix + email

	created, err := r.rdb.SetNX(ctx, indexKey, id, 0).Result()
	if err != nil {
		return "", fmt.Errorf("register password identity: %w", err)
	}
	if !created {
		return "", ErrEmailRegistered
	}

	err = r.rdb.HSet(ctx, identityKeyPrefix+id, map[string]any{
		"provider":      entity.ProviderPassword,
		"email":         email,
		"password_hash": passwordHash,
		"created_at":    time.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		_ = r.rdb.Del(ctx, indexKey).Err()
		return "", fmt.Errorf("store password identity: %w", err)
	}
	return id, nil
}

// PasswordIdentity returns the identity id and password hash for email.
func (r *Registry) PasswordIdentity(ctx context.Context, email string) (string, string, error) {
	id, err := r.rdb.Get(ctx, emailIndexPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", "", ErrUnknownIdentity
	}
	if err != nil {
		return "", "", err
	}
	hash, err := r.rdb.HGet(ctx, identityKeyPrefix+id, "password_hash").Result()
	if errors.Is(err, redis.Nil) {
		return "", "", ErrUnknownIdentity
	}
	if err != nil {
		return "", "", err
	}
	return id, hash, nil
}

// Delete removes an identity and its lookup index. Unknown ids are ignored.
func (r *Registry) Delete(ctx context.Context, id string) error {
	key := identityKeyPrefix + id
	rec, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if len(rec) == 0 {
		return nil
	}

	pipe := r.rdb.TxPipeline()
	switch rec["provider"] {
	case entity.ProviderGitHub:
		pipe.Del(ctx, githubIndexPrefix+rec["external_user_id"])
	case entity.ProviderPassword:
		pipe.Del(ctx, emailIndexPrefix+rec["email"])
	}
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// UpdatePasswordEmail moves a password identity's login email.
func (r *Registry) UpdatePasswordEmail(ctx context.Context, id, oldEmail, newEmail string) error {
	if oldEmail == newEmail {
		return nil
	}
	created, err := r.rdb.SetNX(ctx, emailIndexPrefix+newEmail, id, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return ErrEmailRegistered
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, emailIndexPrefix+oldEmail)
	pipe.HSet(ctx, identityKeyPrefix+id, "email", newEmail)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Registry) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	return r.rdb.Set(ctx, oauthStatePrefix+state, "1", ttl).Err()
}

// ConsumeState reports whether state was issued and not yet used.
func (r *Registry) ConsumeState(ctx context.Context, state string) (bool, error) {
	err := r.rdb.GetDel(ctx, oauthStatePrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
