package store

import (
	"errors"
	"fmt"

	"github.com/coaltrack/apiserver/internal/db"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the database is not configured or cannot
// be reached.
var ErrUnavailable = db.ErrUnavailable

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("validation failed")

var (
	ErrMissingRequiredFields = fmt.Errorf("%w: missing required fields", ErrValidation)
	ErrNoFieldsToUpdate      = fmt.Errorf("%w: no fields to update", ErrValidation)
	ErrInvalidField          = fmt.Errorf("%w: invalid field", ErrValidation)
)
