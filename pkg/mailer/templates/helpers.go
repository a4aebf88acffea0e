package templates

import (
	"strings"
	"time"
)

type Option func(*EmailData)

func WithSupportURL(url string) Option { return func(d *EmailData) { d.SupportURL = url } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.TimeAt = t.UTC() }
}

// NewWelcomeData builds the data for the welcome email sent after a developer
// finishes onboarding.
func NewWelcomeData(appName, frontendURL, name, username, recipient string, opts ...Option) map[string]any {
	base := strings.TrimRight(frontendURL, "/")
	d := EmailData{
		Name:           name,
		Username:       username,
		RecipientEmail: recipient,
		AppName:        appName,
		FrontendURL:    base,
		ProfileURL:     base + "/u/" + username,
		TimeAt:         time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
