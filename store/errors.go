package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a record cannot be found.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidID is returned when an invalid ID is provided.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrDuplicateEntry is returned when a uniqueness constraint is violated,
	// e.g. registering an account with an address that is already taken.
	ErrDuplicateEntry = errors.New("store: duplicate entry")

	// ErrAlreadySigned is returned when a signature is attached to a letter
	// that already carries one. The conditional update that produces this
	// error is atomic; a letter can never end up with a partial signature.
	ErrAlreadySigned = errors.New("store: letter already signed")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")
)

// Error checking helpers.

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsDuplicateEntry(err error) bool {
	return errors.Is(err, ErrDuplicateEntry)
}

func IsAlreadySigned(err error) bool {
	return errors.Is(err, ErrAlreadySigned)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
