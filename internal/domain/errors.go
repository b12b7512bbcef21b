package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrBrokerNotFound    = fmt.Errorf("broker %w", ErrNotFound)
	ErrCustomerNotFound  = fmt.Errorf("customer %w", ErrNotFound)
	ErrBookingNotFound   = fmt.Errorf("booking %w", ErrNotFound)
	ErrPropertyNotFound  = fmt.Errorf("property %w", ErrNotFound)
	ErrInvalidCode       = errors.New("invalid code")
	ErrInvalidTransition = errors.New("booking not in expected state")
	ErrReasonRequired    = errors.New("reason is required")
	ErrMessageRequired   = errors.New("message is required")
	ErrAlreadyVerified   = errors.New("customer already verified")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateID       = errors.New("duplicate id")
)

// IsNotFound reports whether err is ErrNotFound or one of the
// entity-specific errors wrapping it.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
