package domain

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidCategory      = errors.New("invalid notification type")
	ErrRecipientRequired    = errors.New("recipient is required")
	ErrContentRequired      = errors.New("content is required")
)

// IsValidationError reports whether err was caused by client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrRecipientRequired) ||
		errors.Is(err, ErrContentRequired)
}
