package services

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrSearchNotFound     = errors.New("search not found")
	ErrUnknownStage       = errors.New("unknown stage")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
)

// clientError carries a message that is safe to return to the caller while
// still matching its kind with errors.Is.
type clientError struct {
	kind    error
	message string
}

func (e *clientError) Error() string { return e.message }

func (e *clientError) Is(target error) bool { return target == e.kind }

func newClientError(kind error, message string) error {
	return &clientError{kind: kind, message: message}
}

func validationError(message string) error {
	return newClientError(ErrValidation, message)
}
