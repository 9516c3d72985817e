package service

import (
	"alcyxob/learning-platform/internal/authz"
	"alcyxob/learning-platform/internal/domain"
	"alcyxob/learning-platform/internal/repository"
	"errors"
	"fmt"
)

// Errors shared by every service. Service specific ones live next to the
// service that returns them.
var (
	// ErrAccessDenied is returned when the principal's role or ownership does
	// not allow the call.
	ErrAccessDenied = authz.ErrForbidden
	ErrUserNotFound = errors.New("user not found")
)

// invalidf builds a validation error that the API maps to 400.
func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

// notFound replaces repository.ErrNotFound with a service sentinel and passes
// every other error through.
func notFound(err error, sentinel error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return sentinel
	}
	return err
}
