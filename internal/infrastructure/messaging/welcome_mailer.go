// Package messaging queues outbound email on RabbitMQ for cmd/email_worker.
package messaging

import (
	"context"

	"github.com/collabhub/collabhub/internal/domain/gateway"
	"github.com/collabhub/collabhub/pkg/mailer"
	mailtpl "github.com/collabhub/collabhub/pkg/mailer/templates"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type WelcomeMailer struct {
	pub         Publisher
	appName     string
	frontendURL string
	supportURL  string
}

func NewWelcomeMailer(pub Publisher, appName, frontendURL, supportURL string) *WelcomeMailer {
	return &WelcomeMailer{pub: pub, appName: appName, frontendURL: frontendURL, supportURL: supportURL}
}

var _ gateway.Mailer = (*WelcomeMailer)(nil)

func (m *WelcomeMailer) SendWelcome(ctx context.Context, msg gateway.WelcomeEmail) error {
	var opts []mailtpl.Option
	if m.supportURL != "" {
		opts = append(opts, mailtpl.WithSupportURL(m.supportURL))
	}
	return m.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       msg.To,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(m.appName, m.frontendURL, msg.Name, msg.Username, msg.To, opts...),
	})
}
