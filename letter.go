package letterdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avirel/letterdesk/store"
)

// LetterRequest carries the fields for creating a letter.
type LetterRequest struct {
	OwnerID string
	Name    string
	Type    store.LetterType
	Form    store.FormData
}

// requiredFormFields lists the per-type required form fields. Letter types
// not listed here have no required fields beyond the common ones.
var requiredFormFields = map[store.LetterType][]struct {
	name  string
	value func(store.FormData) string
}{
	store.LetterLeave: {
		{"form.startDate", func(f store.FormData) string { return f.StartDate }},
		{"form.endDate", func(f store.FormData) string { return f.EndDate }},
		{"form.reason", func(f store.FormData) string { return f.Reason }},
	},
	store.LetterBonafide: {
		{"form.reason", func(f store.FormData) string { return f.Reason }},
	},
	store.LetterInternship: {
		{"form.companyName", func(f store.FormData) string { return f.CompanyName }},
		{"form.companyLocation", func(f store.FormData) string { return f.CompanyLocation }},
		{"form.startDate", func(f store.FormData) string { return f.StartDate }},
		{"form.endDate", func(f store.FormData) string { return f.EndDate }},
	},
	store.LetterIndustrialVisit: {
		{"form.date", func(f store.FormData) string { return f.Date }},
		{"form.location", func(f store.FormData) string { return f.Location }},
		{"form.numberOfStudents", func(f store.FormData) string { return f.NumberOfStudents }},
	},
}

// validateLetterRequest checks the common and per-type required fields.
func validateLetterRequest(req LetterRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return newValidationError("ownerId", "owner is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return newValidationError("name", "name is required")
	}
	if req.Type == "" {
		return newValidationError("letterType", "letter type is required")
	}
	for _, field := range requiredFormFields[req.Type] {
		if strings.TrimSpace(field.value(req.Form)) == "" {
			return newValidationError(field.name, fmt.Sprintf("required for %s letters", req.Type))
		}
	}
	return nil
}

// CreateLetter creates an unsigned letter for a requester. The owner must
// resolve through the directory and the per-type required form fields must
// be present; otherwise nothing is persisted and a ValidationError is
// returned.
func (s *service) CreateLetter(ctx context.Context, req LetterRequest) (*store.Letter, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	if err := validateLetterRequest(req); err != nil {
		return nil, err
	}

	// An owner that does not resolve is a validation failure, not NotFound:
	// the caller supplied a bad reference on create.
	if _, err := s.directory.ByID(ctx, req.OwnerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newValidationError("ownerId", "owner account does not exist")
		}
		return nil, err
	}

	letter, err := s.store.CreateLetter(ctx, store.LetterData{
		OwnerID: req.OwnerID,
		Name:    req.Name,
		Type:    req.Type,
		Form:    req.Form,
	})
	if err != nil {
		return nil, fmt.Errorf("create letter: %w", err)
	}

	s.logger.Info("letter created",
		"letter_id", letter.ID, "owner_id", letter.OwnerID, "type", letter.Type)
	return letter, nil
}

// Letters returns a requester's letters in insertion order.
func (s *service) Letters(ctx context.Context, ownerID string) ([]*store.Letter, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	letters, err := s.store.ListLetters(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list letters: %w", err)
	}
	return letters, nil
}

// Letter retrieves a letter by id, e.g. for export/download.
func (s *service) Letter(ctx context.Context, id string) (*store.Letter, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	letter, err := s.store.GetLetter(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get letter: %w", err)
	}
	return letter, nil
}
