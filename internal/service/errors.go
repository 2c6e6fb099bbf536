package service

import (
	"errors"
	"fmt"

	"spacehub/internal/database"
)

var (
	ErrNotFound          = database.ErrNotFound
	ErrConflict          = database.ErrConcurrentModification
	ErrUnauthorized      = errors.New("Unauthorized")
	ErrForbidden         = errors.New("Forbidden")
	ErrInvalidTransition = errors.New("Invalid status transition")
	ErrTooManyAttempts   = errors.New("Too many failed login attempts, try again later")
)

// ValidationError is a client mistake; its message is shown to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError carries a caller-facing message and matches ErrForbidden.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func forbidden(msg string) error {
	return &ForbiddenError{Message: msg}
}

// NotFoundError names the missing resource and matches ErrNotFound.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// notFound turns a storage ErrNotFound into a NotFoundError for resource and
// passes any other error through.
func notFound(err error, resource string) error {
	if errors.Is(err, database.ErrNotFound) {
		return &NotFoundError{Resource: resource}
	}
	return err
}
