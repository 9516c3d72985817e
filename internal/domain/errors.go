package domain

import "errors"

// ErrValidation is wrapped by every boundary validator in this package, so
// callers can map any shape error with errors.Is.
var ErrValidation = errors.New("validation failed")
