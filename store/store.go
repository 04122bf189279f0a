// Package store provides interfaces and types for letterdesk storage.
// Implementations are in store/mongo, store/postgres, and store/memory.
//
// The package holds three independent record collections - accounts, letters,
// messages - keyed by generated ids. There are no cross-collection
// transactions: letter creation, letter signing, and message delivery each
// commit independently. Concurrency concerns are handled with database-native
// atomic operations (unique indexes for address uniqueness, conditional
// updates for the sign-once rule), never with external locks.
package store

import "context"

// Store is the storage interface for letterdesk.
//
// All operations must be safe for concurrent use. Implementations must use
// storage-level atomicity (unique constraints, conditional updates) rather
// than read-then-write sequences for the operations that carry invariants:
// CreateAccount's address uniqueness and SetSignature's sign-once rule.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	AccountStore
	LetterStore
	MessageStore
}

// AccountStore provides operations on identity records.
type AccountStore interface {
	// CreateAccount creates an account. Returns ErrDuplicateEntry if the
	// address is already registered; uniqueness is enforced atomically.
	CreateAccount(ctx context.Context, data AccountData) (*Account, error)

	// GetAccount retrieves an account by internal id.
	// Returns ErrNotFound if it does not exist.
	GetAccount(ctx context.Context, id string) (*Account, error)

	// GetAccountByAddress retrieves an account by external address.
	// Returns ErrNotFound if no account carries the address.
	GetAccountByAddress(ctx context.Context, address string) (*Account, error)

	// UpdateAccount applies a partial profile update.
	// Returns ErrNotFound if the account does not exist.
	UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (*Account, error)

	// ListAccounts returns accounts in stable iteration order. When
	// excludeRole is non-empty, every account carrying that role tag is
	// omitted and every account not carrying it is included.
	ListAccounts(ctx context.Context, excludeRole Role) ([]*Account, error)
}

// LetterStore provides operations on letter records.
type LetterStore interface {
	// CreateLetter creates an unsigned letter.
	CreateLetter(ctx context.Context, data LetterData) (*Letter, error)

	// GetLetter retrieves a letter by id.
	// Returns ErrNotFound if it does not exist.
	GetLetter(ctx context.Context, id string) (*Letter, error)

	// ListLetters returns a requester's letters in insertion order
	// (creation time ascending).
	ListLetters(ctx context.Context, ownerID string) ([]*Letter, error)

	// SetSignature attaches a signature to an unsigned letter and returns
	// the signed record. The update is conditional on the letter being
	// unsigned: a letter that already carries a signature yields
	// ErrAlreadySigned, and the signature is written all-or-nothing.
	SetSignature(ctx context.Context, letterID string, sig Signature) (*Letter, error)
}

// MessageStore provides operations on delivery records.
type MessageStore interface {
	// CreateMessage persists a message, assigning the id and send timestamp.
	CreateMessage(ctx context.Context, data MessageData) (*Message, error)

	// ListMessagesFor returns the combined inbox and outbox for an account:
	// every message whose OwnerID equals accountID or whose To equals
	// address, ordered by SentAt descending and capped at limit. The
	// two-space OR is a single store query, not two merged lookups.
	ListMessagesFor(ctx context.Context, accountID, address string, limit int) ([]*Message, error)
}
