package flexcms

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrRecordNotFound indicates a content record was not found. Lookups
	// return it as a normal, expected outcome; callers must not treat it as
	// a failure of the storage layer.
	ErrRecordNotFound = errors.New("record not found")

	// ErrMediaNotFound indicates a media item was not found
	ErrMediaNotFound = errors.New("media not found")

	// ErrUnknownContentType indicates a slug that is not in the schema snapshot
	ErrUnknownContentType = errors.New("unknown content type")

	// ErrNoAdminUser indicates author defaulting found no admin user
	ErrNoAdminUser = errors.New("no admin user to default the author to")

	// ErrNoRepository indicates the service was built without a repository
	ErrNoRepository = errors.New("repository is required")
)

// FieldError represents an error resolving a field value
type FieldError struct {
	Field string
	Op    string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field operation %s failed for field %s: %v", e.Op, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RecordError represents an error related to content record operations
type RecordError struct {
	RecordID uuid.UUID
	Op       string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record operation %s failed for record %s: %v", e.Op, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
