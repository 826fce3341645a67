package booking

import "errors"

// RejectionError is a validation failure with a message safe to show users.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func reject(reason string) error {
	return &RejectionError{Reason: reason}
}

// IsRejection reports whether err is a booking rule violation.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
