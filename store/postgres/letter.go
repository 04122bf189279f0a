package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avirel/letterdesk/store"
)

// letterRow mirrors the letters table. Form and signature data are JSONB.
type letterRow struct {
	ID            string          `db:"id"`
	OwnerID       string          `db:"owner_id"`
	Name          string          `db:"name"`
	LetterType    string          `db:"letter_type"`
	FormData      json.RawMessage `db:"form_data"`
	SignatureData json.RawMessage `db:"signature_data"`
	CreatedAt     time.Time       `db:"created_at"`
}

func (r *letterRow) toLetter() (*store.Letter, error) {
	letter := &store.Letter{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Type:      store.LetterType(r.LetterType),
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal(r.FormData, &letter.Form); err != nil {
		return nil, fmt.Errorf("postgres: decode form data: %w", err)
	}
	if len(r.SignatureData) > 0 {
		var sig store.Signature
		if err := json.Unmarshal(r.SignatureData, &sig); err != nil {
			return nil, fmt.Errorf("postgres: decode signature: %w", err)
		}
		letter.Signature = &sig
	}
	return letter, nil
}

// CreateLetter inserts a new unsigned letter.
func (s *Store) CreateLetter(ctx context.Context, data store.LetterData) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	form, err := json.Marshal(data.Form)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode form data: %w", err)
	}
	row := letterRow{
		ID:         uuid.NewString(),
		OwnerID:    data.OwnerID,
		Name:       data.Name,
		LetterType: string(data.Type),
		FormData:   form,
		CreatedAt:  time.Now().UTC(),
	}
	query := fmt.Sprintf(`INSERT INTO %s (id, owner_id, name, letter_type, form_data, created_at)
		VALUES (:id, :owner_id, :name, :letter_type, :form_data, :created_at)`, s.opts.lettersTable)
	if _, err := s.db.NamedExecContext(ctx, query, &row); err != nil {
		return nil, fmt.Errorf("postgres: create letter: %w", err)
	}
	return row.toLetter()
}

// GetLetter looks up a letter by id.
func (s *Store) GetLetter(ctx context.Context, id string) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var row letterRow
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id = $1`, s.opts.lettersTable)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get letter: %w", err)
	}
	return row.toLetter()
}

// ListLetters returns all letters owned by ownerID, oldest first.
func (s *Store) ListLetters(ctx context.Context, ownerID string) ([]*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []letterRow
	query := fmt.Sprintf(`SELECT * FROM %s WHERE owner_id = $1 ORDER BY created_at`,
		s.opts.lettersTable)
	if err := s.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("postgres: list letters: %w", err)
	}
	letters := make([]*store.Letter, 0, len(rows))
	for i := range rows {
		letter, err := rows[i].toLetter()
		if err != nil {
			return nil, err
		}
		letters = append(letters, letter)
	}
	return letters, nil
}

// SetSignature binds a signature to an unsigned letter. The update only
// matches rows whose signature column is still NULL, so a second signer
// loses the race and gets ErrAlreadySigned.
func (s *Store) SetSignature(ctx context.Context, letterID string, sig store.Signature) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(letterID); err != nil {
		return nil, store.ErrInvalidID
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	data, err := json.Marshal(sig)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode signature: %w", err)
	}

	var row letterRow
	query := fmt.Sprintf(`UPDATE %s SET signature_data = $2
		WHERE id = $1 AND signature_data IS NULL RETURNING *`, s.opts.lettersTable)
	if err := s.db.GetContext(ctx, &row, query, letterID, data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the letter does not exist or it is already signed.
			if _, getErr := s.GetLetter(ctx, letterID); getErr != nil {
				return nil, getErr
			}
			return nil, store.ErrAlreadySigned
		}
		return nil, fmt.Errorf("postgres: set signature: %w", err)
	}
	return row.toLetter()
}
