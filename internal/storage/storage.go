package storage

import "errors"

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRejected           = errors.New("request rejected by user store")
)

// RejectionError carries the user store's own explanation for a refused
// request. Reason is one of the sentinels above.
type RejectionError struct {
	Reason  error
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return e.Reason.Error()
	}

	return e.Reason.Error() + ": " + e.Message
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

// Reject wraps reason with the store-supplied message.
func Reject(reason error, message string) error {
	return &RejectionError{Reason: reason, Message: message}
}
