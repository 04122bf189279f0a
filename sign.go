package letterdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/avirel/letterdesk/store"
)

// SignLetter binds a signature to an unsigned letter: the signer's id, a
// snapshot of their display name, the rendered signature image, and the
// server-side timestamp. The signer must resolve through the directory and
// pass the configured sign policy. A letter that already carries a signature
// yields ErrAlreadySigned regardless of signer; the letter's form data is
// never touched.
func (s *service) SignLetter(ctx context.Context, letterID, signerID, signatureImage string) (*store.Letter, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "letterdesk.sign",
		attribute.String("letter_id", letterID),
		attribute.String("signer_id", signerID),
	)
	start := time.Now()
	var letterType store.LetterType
	var signErr error
	defer func() {
		endSpan(signErr)
		s.otel.recordSign(ctx, time.Since(start), string(letterType), signErr)
	}()

	if strings.TrimSpace(signatureImage) == "" {
		signErr = newValidationError("signatureImage", "signature image is required")
		return nil, signErr
	}

	letter, err := s.store.GetLetter(ctx, letterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			signErr = ErrNotFound
			return nil, signErr
		}
		signErr = fmt.Errorf("get letter: %w", err)
		return nil, signErr
	}
	letterType = letter.Type

	// Check the state machine before resolving the signer so a double sign
	// reports AlreadySigned even for unknown signers. The store re-checks
	// atomically below.
	if letter.Signed() {
		signErr = ErrAlreadySigned
		return nil, signErr
	}

	signer, err := s.directory.ByID(ctx, signerID)
	if err != nil {
		signErr = err
		return nil, signErr
	}

	if !s.opts.signPolicy(signer.Roles, letter.Type) {
		signErr = fmt.Errorf("account %s may not sign %s letters: %w",
			signerID, letter.Type, ErrUnauthorized)
		return nil, signErr
	}

	sig := store.Signature{
		Image:      signatureImage,
		SignedBy:   signer.Name,
		SignedByID: signer.ID,
		SignedAt:   time.Now().UTC(),
	}

	// The store applies the signature conditionally on the letter still
	// being unsigned, so concurrent signers cannot both succeed.
	signed, err := s.store.SetSignature(ctx, letterID, sig)
	if err != nil {
		if errors.Is(err, store.ErrAlreadySigned) {
			signErr = ErrAlreadySigned
			return nil, signErr
		}
		if errors.Is(err, store.ErrNotFound) {
			signErr = ErrNotFound
			return nil, signErr
		}
		signErr = fmt.Errorf("set signature: %w", err)
		return nil, signErr
	}

	s.logger.Info("letter signed",
		"letter_id", signed.ID, "signer_id", signer.ID, "type", signed.Type)

	if pubErr := s.events.LetterSigned.Publish(ctx, LetterSignedEvent{
		LetterID:   signed.ID,
		OwnerID:    signed.OwnerID,
		SignedByID: signer.ID,
		SignedAt:   sig.SignedAt,
	}); pubErr != nil {
		s.logger.Error("failed to publish event", "event", "LetterSigned", "error", pubErr)
	}

	return signed, nil
}
