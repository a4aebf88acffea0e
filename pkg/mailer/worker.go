package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	mailtpl "github.com/collabhub/collabhub/pkg/mailer/templates"
)

// ErrPoisonMessage marks a job that can never be delivered and must not be
// requeued.
var ErrPoisonMessage = errors.New("mailer: undeliverable job")

type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Process decodes one queued job, renders it and hands it to s. Decode and
// render failures wrap ErrPoisonMessage; send failures do not.
func Process(ctx context.Context, body []byte, s Sender) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrPoisonMessage, err)
	}
	if strings.TrimSpace(job.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrPoisonMessage)
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrPoisonMessage, job.Template, err)
		}
	}
	if subject == "" {
		return fmt.Errorf("%w: missing subject", ErrPoisonMessage)
	}
	return s.Send(ctx, job.To, subject, text, html)
}
