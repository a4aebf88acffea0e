package application

import (
	"errors"

	"github.com/collabhub/collabhub/internal/domain/apperror"
)

var errAvatarsDisabled = errors.New("avatar storage is not configured")

// keepKind passes kinded errors through and tags anything else as technical.
func keepKind(op string, err error) error {
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperror.Technical(op, err)
}
