package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/internal/domain/entity"
	repo "github.com/collabhub/collabhub/internal/domain/repository"
	"github.com/collabhub/collabhub/pkg/helpers"
)

const DefaultSessionTTL = 24 * time.Hour

var ErrInvalidSession = errors.New("invalid session")

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// SessionService issues JWT pairs and tracks the active session id of each
// user in a Redis hash. Only the newest session id is honoured.
type SessionService struct {
	Users  repo.UserRepository
	JWT    *helpers.JWTManager
	Redis  *redis.Client
	Logger *logrus.Logger
	TTL    time.Duration
}

func NewSessionService(users repo.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{Users: users, JWT: jwt, Redis: rdb, Logger: logger, TTL: ttl}
}

func SessionKey(userID string) string {
	return "user:session:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Issue generates access/refresh tokens and records a session in Redis.
func (s *SessionService) Issue(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.sign(u.ID(), sid)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID()).Error("generate tokens failed")
		return TokenPair{}, apperror.Technical("session.issue", err)
	}

	key := SessionKey(u.ID())
	pipe := s.Redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		"user_id":    u.ID(),
		"username":   u.Username().String(),
		"email":      u.Email().String(),
		"sid":        sid,
		"logged_in":  true,
		"created_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, s.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log().WithError(err).WithField("key", key).Error("redis pipeline failed")
		return TokenPair{}, apperror.Technical("session.issue", err)
	}
	return pair, nil
}

// Refresh rotates the session id and both tokens. The refresh token must
// carry the current session id.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	const op = "session.refresh"
	denied := apperror.Unauthorized(op, "session expired, please sign in again")

	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", denied
	}
	if _, err := s.Users.FindByID(ctx, claims.UserID); err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return TokenPair{}, "", denied
		}
		return TokenPair{}, "", err
	}

	key := SessionKey(claims.UserID)
	current, err := s.Redis.HGet(ctx, key, "sid").Result()
	if errors.Is(err, redis.Nil) || (err == nil && current != claims.SessionID) {
		return TokenPair{}, "", denied
	}
	if err != nil {
		return TokenPair{}, "", apperror.Technical(op, err)
	}

	sid := uuid.NewString()
	pair, err := s.sign(claims.UserID, sid)
	if err != nil {
		return TokenPair{}, "", apperror.Technical(op, err)
	}
	pipe := s.Redis.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"sid":        sid,
		"updated_at": nowRFC3339(),
	})
	pipe.Expire(ctx, key, s.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return TokenPair{}, "", apperror.Technical(op, err)
	}
	return pair, claims.UserID, nil
}

// Validate reports whether the access token belongs to the live session
// and returns the cached session fields.
func (s *SessionService) Validate(ctx context.Context, accessToken string) (map[string]string, error) {
	claims, err := s.JWT.ParseAccessToken(accessToken)
	if err != nil {
		return nil, ErrInvalidSession
	}
	data, err := s.Redis.HGetAll(ctx, SessionKey(claims.UserID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data["sid"] != claims.SessionID {
		return nil, ErrInvalidSession
	}
	return data, nil
}

// Sync refreshes the cached username and email, keeping the session TTL.
func (s *SessionService) Sync(ctx context.Context, u *entity.User) {
	key := SessionKey(u.ID())
	n, err := s.Redis.Exists(ctx, key).Result()
	if err != nil || n == 0 {
		return
	}
	pipe := s.Redis.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"username":   u.Username().String(),
		"email":      u.Email().String(),
		"updated_at": nowRFC3339(),
	})
	if ttl, tErr := s.Redis.TTL(ctx, key).Result(); tErr == nil && ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log().WithError(err).WithField("key", key).Warn("redis pipeline failed")
	}
}

func (s *SessionService) Revoke(ctx context.Context, userID string) error {
	if err := s.Redis.Del(ctx, SessionKey(userID)).Err(); err != nil {
		return apperror.Technical("session.revoke", err)
	}
	return nil
}

func (s *SessionService) sign(userID, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *SessionService) log() *logrus.Entry {
	return entryFor(s.Logger, "session")
}

func entryFor(l *logrus.Logger, component string) *logrus.Entry {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", component)
}
