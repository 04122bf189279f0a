package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avirel/letterdesk/store"
)

// messageRow mirrors the messages table.
type messageRow struct {
	ID               string          `db:"id"`
	OwnerID          string          `db:"owner_id"`
	From             string          `db:"from_address"`
	To               string          `db:"to_address"`
	Subject          string          `db:"subject"`
	Body             string          `db:"body"`
	DigitalSignature string          `db:"digital_signature"`
	PublicKey        string          `db:"public_key"`
	LetterID         string          `db:"letter_id"`
	Attachment       json.RawMessage `db:"attachment"`
	SentAt           time.Time       `db:"sent_at"`
}

func (r *messageRow) toMessage() (*store.Message, error) {
	msg := &store.Message{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		From:             r.From,
		To:               r.To,
		Subject:          r.Subject,
		Body:             r.Body,
		DigitalSignature: r.DigitalSignature,
		PublicKey:        r.PublicKey,
		LetterID:         r.LetterID,
		SentAt:           r.SentAt,
	}
	if len(r.Attachment) > 0 {
		var att store.Attachment
		if err := json.Unmarshal(r.Attachment, &att); err != nil {
			return nil, fmt.Errorf("postgres: decode attachment: %w", err)
		}
		msg.Attachment = &att
	}
	return msg, nil
}

// CreateMessage inserts a delivered message. SentAt is assigned here.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	row := messageRow{
		ID:               uuid.NewString(),
		OwnerID:          data.OwnerID,
		From:             data.From,
		To:               data.To,
		Subject:          data.Subject,
		Body:             data.Body,
		DigitalSignature: data.DigitalSignature,
		PublicKey:        data.PublicKey,
		LetterID:         data.LetterID,
		SentAt:           time.Now().UTC(),
	}
	if data.Attachment != nil {
		att, err := json.Marshal(data.Attachment)
		if err != nil {
			return nil, fmt.Errorf("postgres: encode attachment: %w", err)
		}
		row.Attachment = att
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(id, owner_id, from_address, to_address, subject, body, digital_signature, public_key, letter_id, attachment, sent_at)
		VALUES (:id, :owner_id, :from_address, :to_address, :subject, :body, :digital_signature, :public_key, :letter_id, :attachment, :sent_at)`,
		s.opts.messagesTable)
	if _, err := s.db.NamedExecContext(ctx, query, &row); err != nil {
		return nil, fmt.Errorf("postgres: create message: %w", err)
	}
	return row.toMessage()
}

// ListMessagesFor returns the newest messages visible to an account,
// matching either as sender (owner) or as recipient by address.
func (s *Store) ListMessagesFor(ctx context.Context, accountID, address string, limit int) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var rows []messageRow
	query := fmt.Sprintf(`SELECT * FROM %s WHERE owner_id = $1 OR to_address = $2
		ORDER BY sent_at DESC LIMIT $3`, s.opts.messagesTable)
	if err := s.db.SelectContext(ctx, &rows, query, accountID, address, limit); err != nil {
		return nil, fmt.Errorf("postgres: list messages: %w", err)
	}
	messages := make([]*store.Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].toMessage()
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
