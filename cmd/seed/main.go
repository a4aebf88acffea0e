package main

import (
	"context"
	"errors"
	"flag"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/collabhub/collabhub/config"
	"github.com/collabhub/collabhub/internal/container"
	"github.com/collabhub/collabhub/internal/domain/apperror"
	"github.com/collabhub/collabhub/pkg/helpers"
)

// seed onboards a password account through the same saga the API uses.
func main() {
	email := flag.String("email", "demo@collabhub.dev", "account email")
	password := flag.String("password", "password123", "account password")
	username := flag.String("username", "demo-user", "account username")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	cfg.MailSendEnabled = false
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	c := container.New(cfg, logger)
	defer c.Stop(ctx)
	if err := c.Start(ctx); err != nil {
		logger.Fatalf("startup failed: %v", err)
	}

	res, err := c.Auth.SignUp(ctx, *email, *password, *username)
	if errors.Is(err, apperror.ErrConflict) {
		logger.WithField("email", helpers.MaskEmail(*email)).Info("demo account already exists")
		return
	}
	if err != nil {
		logger.Fatalf("seed failed: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"user_id":  res.User.ID(),
		"username": res.User.Username().String(),
	}).Info("seeded demo account")
}
