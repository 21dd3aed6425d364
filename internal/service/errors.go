package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the target entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a membership edge already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotInList is returned when a membership edge to delete does not exist
	ErrNotInList = errors.New("not in list")
	// ErrSelfSubscription is returned on an attempt to follow oneself
	ErrSelfSubscription = errors.New("cannot subscribe to yourself")
	// ErrForbidden is returned when a non-author modifies a recipe
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an existing email
	ErrEmailTaken = errors.New("user already exists")
)

// ValidationError is a client error keyed by the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
