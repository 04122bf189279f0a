package letterdesk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/avirel/letterdesk/attachment"
	"github.com/avirel/letterdesk/store"
)

// SendRequest contains the data needed to deliver a message.
//
// To is a free-form address string: it is taken as given and need not
// resolve to a known account, so documents can be delivered to identities
// outside the directory.
type SendRequest struct {
	From    string
	To      string
	Subject string
	Body    string
	// AccountID is the account initiating the send (the sender or a proxy).
	// It owns the resulting message record.
	AccountID string

	// Document is the optional raw attachment payload; Filename and
	// ContentType describe it. The payload must pass the attachment codec
	// (PDF only, size-capped) or the whole send is rejected.
	Document    []byte
	Filename    string
	ContentType string

	// LetterID optionally records which letter the document was rendered
	// from. The attachment stays a detached snapshot of that letter.
	LetterID string

	// Opaque attestation fields, copied through verbatim.
	DigitalSignature string
	PublicKey        string
}

// validateSendRequest checks the required send fields.
func validateSendRequest(req SendRequest) error {
	switch {
	case strings.TrimSpace(req.From) == "":
		return newValidationError("from", "sender address is required")
	case strings.TrimSpace(req.To) == "":
		return newValidationError("to", "recipient address is required")
	case strings.TrimSpace(req.Subject) == "":
		return newValidationError("subject", "subject is required")
	case strings.TrimSpace(req.Body) == "":
		return newValidationError("body", "body is required")
	case strings.TrimSpace(req.AccountID) == "":
		return newValidationError("accountId", "initiating account is required")
	}
	return nil
}

// Send delivers a message. The attempt passes through validation, optional
// attachment encoding, and persistence; a rejection at any gate leaves
// nothing persisted. The send timestamp is assigned server-side.
func (s *service) Send(ctx context.Context, req SendRequest) (*store.Message, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	// Cap concurrent sends; Close drains this semaphore on shutdown.
	if err := s.sendSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire send slot: %w", err)
	}
	defer s.sendSem.Release(1)

	ctx, endSpan := s.otel.startSpan(ctx, "letterdesk.send",
		attribute.String("account_id", req.AccountID),
		attribute.String("to", req.To),
	)
	start := time.Now()
	var sendErr error
	defer func() {
		endSpan(sendErr)
		s.otel.recordSend(ctx, time.Since(start), len(req.Document) > 0, sendErr)
	}()

	// Validating
	if err := validateSendRequest(req); err != nil {
		sendErr = err
		return nil, sendErr
	}

	if s.opts.attestationVerifier != nil && (req.DigitalSignature != "" || req.PublicKey != "") {
		if err := s.opts.attestationVerifier(ctx, req.DigitalSignature, req.PublicKey); err != nil {
			sendErr = fmt.Errorf("attestation rejected: %w (%v)", ErrUnauthorized, err)
			return nil, sendErr
		}
	}

	// Encoding
	var att *store.Attachment
	if len(req.Document) > 0 {
		enc, err := attachment.Encode(req.Document, req.Filename, req.ContentType)
		if err != nil {
			sendErr = err
			return nil, sendErr
		}
		att = &store.Attachment{Filename: enc.Filename, Data: enc.Data}
	}

	// Resolving: the recipient address is taken as given. Persisted.
	msg, err := s.store.CreateMessage(ctx, store.MessageData{
		OwnerID:          req.AccountID,
		From:             req.From,
		To:               req.To,
		Subject:          req.Subject,
		Body:             req.Body,
		DigitalSignature: req.DigitalSignature,
		PublicKey:        req.PublicKey,
		LetterID:         req.LetterID,
		Attachment:       att,
	})
	if err != nil {
		sendErr = fmt.Errorf("create message: %w", err)
		return nil, sendErr
	}

	s.logger.Info("message sent",
		"message_id", msg.ID, "account_id", msg.OwnerID, "to", msg.To,
		"has_attachment", att != nil)

	if pubErr := s.events.MessageSent.Publish(ctx, MessageSentEvent{
		MessageID:     msg.ID,
		AccountID:     msg.OwnerID,
		From:          msg.From,
		To:            msg.To,
		Subject:       msg.Subject,
		HasAttachment: att != nil,
		SentAt:        msg.SentAt,
	}); pubErr != nil {
		s.logger.Error("failed to publish event", "event", "MessageSent", "error", pubErr)
	}

	return msg, nil
}

// Messages returns the account's combined inbox and outbox: every message
// the account initiated plus every message addressed to the account's own
// address, newest first, capped at the configured limit.
//
// The account must resolve through the directory first. A failed lookup
// fails the whole query with ErrNotFound - it never degrades to the
// sender-match half, which would silently drop all received messages.
func (s *service) Messages(ctx context.Context, accountID string) ([]*store.Message, error) {
	if err := s.checkAccess(); err != nil {
		return nil, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "letterdesk.messages",
		attribute.String("account_id", accountID),
	)
	start := time.Now()
	var listErr error
	var msgs []*store.Message
	defer func() {
		endSpan(listErr)
		s.otel.recordList(ctx, time.Since(start), len(msgs), listErr)
	}()

	account, err := s.directory.ByID(ctx, accountID)
	if err != nil {
		listErr = err
		return nil, listErr
	}

	// One store-level query across both key spaces: the internal account
	// id (outbox half) OR the external address (inbox half).
	msgs, err = s.store.ListMessagesFor(ctx, account.ID, account.Address, s.opts.inboxLimit)
	if err != nil {
		listErr = fmt.Errorf("list messages: %w", err)
		return nil, listErr
	}
	return msgs, nil
}
