package letterdesk

import (
	"errors"
	"fmt"

	"github.com/avirel/letterdesk/store"
)

// Sentinel errors for the letterdesk package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding store-level errors where applicable, so
// errors.Is(err, letterdesk.ErrNotFound) matches both letterdesk-level and
// store-level "not found" errors.
var (
	// ErrNotFound is returned when a referenced account, letter, or message
	// does not exist. Wraps store.ErrNotFound for consistent checking.
	ErrNotFound = fmt.Errorf("letterdesk: %w", store.ErrNotFound)

	// ErrConflict is returned when registering an account whose address is
	// already taken. Wraps store.ErrDuplicateEntry.
	ErrConflict = fmt.Errorf("letterdesk: %w", store.ErrDuplicateEntry)

	// ErrAlreadySigned is returned when signing a letter that already
	// carries a signature. Wraps store.ErrAlreadySigned.
	ErrAlreadySigned = fmt.Errorf("letterdesk: %w", store.ErrAlreadySigned)

	// ErrValidation is returned for missing or malformed required input.
	// Nothing is persisted; the caller must correct and retry.
	ErrValidation = errors.New("letterdesk: validation failed")

	// ErrUnauthorized is returned when credentials do not match or when the
	// sign policy denies a signer.
	ErrUnauthorized = errors.New("letterdesk: unauthorized")

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("letterdesk: store is required")

	// ErrNotConnected is returned when operations are attempted before
	// Connect(). Wraps store.ErrNotConnected.
	ErrNotConnected = fmt.Errorf("letterdesk: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected.
	ErrAlreadyConnected = fmt.Errorf("letterdesk: %w", store.ErrAlreadyConnected)
)

// ValidationError provides details about a validation failure.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("letterdesk: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
