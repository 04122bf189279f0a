package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/avirel/letterdesk/store"
)

// accountRow mirrors the accounts table.
type accountRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Address        string         `db:"address"`
	CredentialHash []byte         `db:"credential_hash"`
	Roles          pq.StringArray `db:"roles"`
	Department     string         `db:"department"`
	Section        string         `db:"section"`
	Hosteller      bool           `db:"hosteller"`
	HostelName     string         `db:"hostel_name"`
	RollNumber     string         `db:"roll_number"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r *accountRow) toAccount() *store.Account {
	roles := make([]store.Role, 0, len(r.Roles))
	for _, role := range r.Roles {
		roles = append(roles, store.Role(role))
	}
	return &store.Account{
		ID:             r.ID,
		Name:           r.Name,
		Address:        r.Address,
		CredentialHash: r.CredentialHash,
		Roles:          roles,
		Department:     r.Department,
		Section:        r.Section,
		Hosteller:      r.Hosteller,
		HostelName:     r.HostelName,
		RollNumber:     r.RollNumber,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func rolesToStrings(roles []store.Role) pq.StringArray {
	out := make(pq.StringArray, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// CreateAccount inserts a new account. The address must be unique.
func (s *Store) CreateAccount(ctx context.Context, data store.AccountData) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	row := accountRow{
		ID:             uuid.NewString(),
		Name:           data.Name,
		Address:        data.Address,
		CredentialHash: data.CredentialHash,
		Roles:          rolesToStrings(data.Roles),
		Department:     data.Department,
		Section:        data.Section,
		Hosteller:      data.Hosteller,
		HostelName:     data.HostelName,
		RollNumber:     data.RollNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(id, name, address, credential_hash, roles, department, section, hosteller, hostel_name, roll_number, created_at, updated_at)
		VALUES (:id, :name, :address, :credential_hash, :roles, :department, :section, :hosteller, :hostel_name, :roll_number, :created_at, :updated_at)`,
		s.opts.accountsTable)
	if _, err := s.db.NamedExecContext(ctx, query, &row); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("postgres: create account: %w", err)
	}
	return row.toAccount(), nil
}

// GetAccount looks up an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var row accountRow
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, s.opts.accountsTable)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get account: %w", err)
	}
	return row.toAccount(), nil
}

// GetAccountByAddress looks up an account by its delivery address.
func (s *Store) GetAccountByAddress(ctx context.Context, address string) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var row accountRow
	query := fmt.Sprintf(`SELECT * FROM %s WHERE address = $1`, s.opts.accountsTable)
	if err := s.db.GetContext(ctx, &row, query, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get account by address: %w", err)
	}
	return row.toAccount(), nil
}

// UpdateAccount applies the non-nil fields of update to an account.
func (s *Store) UpdateAccount(ctx context.Context, id string, upd store.AccountUpdate) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	set := "updated_at = $2"
	args := []any{id, time.Now().UTC()}
	next := 3
	addField := func(col string, val any) {
		set += fmt.Sprintf(", %s = $%d", col, next)
		args = append(args, val)
		next++
	}
	if upd.Name != nil {
		addField("name", *upd.Name)
	}
	if upd.Department != nil {
		addField("department", *upd.Department)
	}
	if upd.Section != nil {
		addField("section", *upd.Section)
	}
	if upd.Hosteller != nil {
		addField("hosteller", *upd.Hosteller)
	}
	if upd.HostelName != nil {
		addField("hostel_name", *upd.HostelName)
	}
	if upd.RollNumber != nil {
		addField("roll_number", *upd.RollNumber)
	}
	if upd.Roles != nil {
		addField("roles", rolesToStrings(upd.Roles))
	}

	var row accountRow
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 RETURNING *`, s.opts.accountsTable, set)
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: update account: %w", err)
	}
	return row.toAccount(), nil
}

// ListAccounts returns all accounts, skipping those holding excludeRole.
func (s *Store) ListAccounts(ctx context.Context, excludeRole store.Role) ([]*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []accountRow
	var err error
	if excludeRole == "" {
		query := fmt.Sprintf(`SELECT * FROM %s ORDER BY created_at`, s.opts.accountsTable)
		err = s.db.SelectContext(ctx, &rows, query)
	} else {
		query := fmt.Sprintf(`SELECT * FROM %s WHERE NOT ($1 = ANY(roles)) ORDER BY created_at`,
			s.opts.accountsTable)
		err = s.db.SelectContext(ctx, &rows, query, string(excludeRole))
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: list accounts: %w", err)
	}
	accounts := make([]*store.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toAccount())
	}
	return accounts, nil
}
