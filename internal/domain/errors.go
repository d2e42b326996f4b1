package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrNoRefreshToken     = fmt.Errorf("%w: no refresh token", ErrSessionExpired)
	ErrUserUnresolved     = errors.New("user profile could not be resolved")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrOperationDisabled  = errors.New("operation not enabled for resource")
	ErrSecretNotFound     = errors.New("secret not found")
)

// RequestFailedError is a non-2xx response from the fleet API.
type RequestFailedError struct {
	Method  string
	Path    string
	Status  int
	Body    []byte
	Message string
}

func (e *RequestFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// ActionError is what resource actions reject with. Message is safe to show
// to an operator.
type ActionError struct {
	Op      string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
