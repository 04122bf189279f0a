package letterdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/avirel/letterdesk/store"
)

// RegisterRequest carries the fields for registering an account.
type RegisterRequest struct {
	Name    string
	Address string
	// Secret is the plaintext credential. It is bcrypt-hashed before
	// storage and discarded; the plaintext is never persisted.
	Secret     string
	Roles      []store.Role
	Department string
	Section    string
	Hosteller  bool
	HostelName string
	RollNumber string
}

// RegisterAccount creates an account. The address must not already be
// registered; a duplicate yields ErrConflict.
func (s *service) RegisterAccount(ctx context.Context, req RegisterRequest) (*store.Account, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Address) == "" {
		return nil, newValidationError("address", "address is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, newValidationError("name", "name is required")
	}
	if req.Secret == "" {
		return nil, newValidationError("secret", "credential is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	account, err := s.store.CreateAccount(ctx, store.AccountData{
		Name:           req.Name,
		Address:        req.Address,
		CredentialHash: hash,
		Roles:          req.Roles,
		Department:     req.Department,
		Section:        req.Section,
		Hosteller:      req.Hosteller,
		HostelName:     req.HostelName,
		RollNumber:     req.RollNumber,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEntry) {
			return nil, fmt.Errorf("address %q: %w", req.Address, ErrConflict)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account registered", "account_id", account.ID, "address", account.Address)
	return account, nil
}

// Login checks an address/secret pair. Returns ErrNotFound for an unknown
// address and ErrUnauthorized when the secret does not match. The comparison
// is a salted one-way hash check, constant-time over the hash.
func (s *service) Login(ctx context.Context, address, secret string) (*store.Account, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccountByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(account.CredentialHash, []byte(secret)); err != nil {
		return nil, ErrUnauthorized
	}

	return account, nil
}

// Account retrieves an account by internal id.
func (s *service) Account(ctx context.Context, id string) (*store.Account, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}
	return s.directory.ByID(ctx, id)
}

// AccountByAddress retrieves an account by external address.
func (s *service) AccountByAddress(ctx context.Context, address string) (*store.Account, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}
	return s.directory.ByAddress(ctx, address)
}

// UpdateAccount applies a partial profile update.
func (s *service) UpdateAccount(ctx context.Context, id string, upd store.AccountUpdate) (*store.Account, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	account, err := s.store.UpdateAccount(ctx, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return account, nil
}

// Accounts lists accounts, optionally excluding every account that carries
// the given role tag.
func (s *service) Accounts(ctx context.Context, excludeRole store.Role) ([]*store.Account, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}
	return s.directory.List(ctx, excludeRole)
}
