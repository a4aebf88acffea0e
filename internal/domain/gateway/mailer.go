package gateway

import "context"

type WelcomeEmail struct {
	To       string
	Name     string
	Username string
}

// Mailer queues transactional email.
type Mailer interface {
	SendWelcome(ctx context.Context, msg WelcomeEmail) error
}
