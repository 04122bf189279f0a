package letterdesk

import (
	"context"
	"errors"
	"fmt"

	"github.com/avirel/letterdesk/store"
)

// Directory is the read-only identity lookup used by signing and delivery.
// It resolves accounts in two key spaces - the internal id and the external
// address string - and lists accounts filtered by role tag. It is backed by
// the service's account collection and is safe for concurrent use.
type Directory struct {
	service *service
}

// ByID resolves an account by internal id.
// Returns ErrNotFound if the account does not exist.
func (d *Directory) ByID(ctx context.Context, id string) (*store.Account, error) {
	account, err := d.service.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return account, nil
}

// ByAddress resolves an account by external address.
// Returns ErrNotFound if no account carries the address.
func (d *Directory) ByAddress(ctx context.Context, address string) (*store.Account, error) {
	account, err := d.service.store.GetAccountByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return account, nil
}

// List returns accounts in stable iteration order. With a non-empty
// excludeRole, every account carrying that tag is omitted; all others are
// included. An empty excludeRole returns all accounts.
func (d *Directory) List(ctx context.Context, excludeRole store.Role) ([]*store.Account, error) {
	accounts, err := d.service.store.ListAccounts(ctx, excludeRole)
	if err != nil {
		return nil, fmt.Errorf("directory list: %w", err)
	}
	return accounts, nil
}
