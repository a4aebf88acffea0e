// Package container builds the application's dependency graph once at
// startup and tears it down on shutdown.
package container

import (
	"context"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/config"
	"github.com/collabhub/collabhub/internal/application"
	"github.com/collabhub/collabhub/internal/application/onboarding"
	"github.com/collabhub/collabhub/internal/domain/gateway"
	"github.com/collabhub/collabhub/internal/infrastructure/identity"
	"github.com/collabhub/collabhub/internal/infrastructure/messaging"
	pginfra "github.com/collabhub/collabhub/internal/infrastructure/postgres"
	"github.com/collabhub/collabhub/internal/infrastructure/search"
	"github.com/collabhub/collabhub/internal/infrastructure/secretbox"
	"github.com/collabhub/collabhub/internal/infrastructure/storage"
	"github.com/collabhub/collabhub/pkg/helpers"
)

type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PG     *pgxpool.Pool
	Redis  *redis.Client
	Rabbit *helpers.RabbitPublisher
	ES     *elasticsearch.Client
	GCS    *gcs.Client

	JWT          *helpers.JWTManager
	Orchestrator *onboarding.Orchestrator
	Sessions     *application.SessionService
	Auth         *application.AuthService
	Profiles     *application.ProfileService
}

func New(cfg *config.Config, logger *logrus.Logger) *Container {
	return &Container{Config: cfg, Logger: logger}
}

// Start connects to every backing service and wires the services. Postgres,
// Redis and the credential key are required; RabbitMQ, Elasticsearch and
// GCS degrade to disabled features when unavailable.
func (c *Container) Start(ctx context.Context) error {
	cfg := c.Config

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	c.PG = pool

	c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := helpers.PingRedis(ctx, c.Redis); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	box, err := secretbox.New(cfg.CredentialKey)
	if err != nil {
		return fmt.Errorf("credential key: %w", err)
	}

	var mailer gateway.Mailer
	if cfg.MailSendEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			c.Logger.WithError(err).Warn("rabbitmq unavailable, welcome emails disabled")
		} else {
			c.Rabbit = pub
			mailer = messaging.NewWelcomeMailer(pub, cfg.AppName, cfg.FrontendURL, cfg.SupportURL)
		}
	}

	var index gateway.ProfileIndex
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			c.Logger.WithError(err).Warn("elasticsearch unavailable, profile search disabled")
		} else {
			c.ES = es
			profileIndex := search.NewProfileIndex(es, cfg.ESProfilesIndex)
			if err := profileIndex.EnsureIndex(ctx); err != nil {
				c.Logger.WithError(err).Warn("profile index not ready, search may be empty")
			}
			index = profileIndex
		}
	}

	var avatars gateway.AvatarStore
	if cfg.GCSBucket != "" {
		client, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			c.Logger.WithError(err).Warn("gcs unavailable, avatar uploads disabled")
		} else {
			c.GCS = client
			avatars = storage.NewAvatarStore(client, cfg.GCSBucket)
		}
	}

	users := pginfra.NewUserRepository(pool)
	profiles := pginfra.NewProfileRepository(pool)
	credentials := pginfra.NewCredentialStore(pool, box)

	github := identity.NewGitHubClient(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL, cfg.GitHubScopeList()).
		WithTimeout(cfg.GitHubHTTPTimeout)
	provider := identity.NewProvider(github, identity.NewRegistry(c.Redis), cfg.OAuthStateTTL, c.Logger)

	c.Orchestrator = onboarding.NewOrchestrator(users, profiles, credentials, provider, c.Logger, onboarding.Options{
		StepTimeout:         cfg.StepTimeout,
		CompensationTimeout: cfg.CompensationTimeout,
	})
	c.Orchestrator.Index = index
	c.Orchestrator.Mailer = mailer

	c.JWT = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	c.Sessions = application.NewSessionService(users, c.JWT, c.Redis, c.Logger, cfg.RefreshTTL)
	c.Auth = application.NewAuthService(provider, c.Orchestrator, users, c.Sessions, c.Logger)
	c.Auth.ReleaseTimeout = cfg.CompensationTimeout
	c.Profiles = &application.ProfileService{
		Users:       users,
		Profiles:    profiles,
		Credentials: credentials,
		Identities:  provider,
		Avatars:     avatars,
		Index:       index,
		Sessions:    c.Sessions,
		Logger:      c.Logger,
	}

	c.Logger.WithFields(logrus.Fields{
		"mail":    mailer != nil,
		"search":  index != nil,
		"avatars": avatars != nil,
	}).Info("container started")
	return nil
}

// Stop releases every client Start opened. It is safe after a failed Start.
func (c *Container) Stop(_ context.Context) {
	if c.Rabbit != nil {
		c.Rabbit.Close()
	}
	if c.GCS != nil {
		_ = c.GCS.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PG != nil {
		c.PG.Close()
	}
}
