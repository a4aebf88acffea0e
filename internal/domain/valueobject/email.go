package valueobject

import (
	"strings"

	"github.com/collabhub/collabhub/internal/domain/apperror"
)

const maxEmailLength = 254

// Email is a normalized (trimmed, lower-cased) email address.
type Email struct {
	value string
}

// NewEmail parses raw into an Email.
func NewEmail(raw string) (Email, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return Email{}, apperror.Validation("email.new", "email is required")
	}
	if len(v) > maxEmailLength {
		return Email{}, apperror.Validation("email.new", "email must be at most 254 characters")
	}
	if err := validate.Var(v, "email"); err != nil {
		return Email{}, apperror.Validation("email.new", "email is not a valid address")
	}
	return Email{value: v}, nil
}

func (e Email) String() string { return e.value }

func (e Email) Equals(other Email) bool { return e.value == other.value }

func (e Email) IsZero() bool { return e.value == "" }

// Domain returns the part after the @.
func (e Email) Domain() string {
	_, domain, _ := strings.Cut(e.value, "@")
	return domain
}
