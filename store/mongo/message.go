package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/avirel/letterdesk/store"
)

// attachmentDoc is the embedded encoded attachment.
type attachmentDoc struct {
	Filename string `bson:"filename"`
	Data     string `bson:"data"`
}

// messageDoc is the MongoDB document for a message.
type messageDoc struct {
	ID               bson.ObjectID  `bson:"_id,omitempty"`
	OwnerID          string         `bson:"owner_id"`
	From             string         `bson:"from"`
	To               string         `bson:"to"`
	Subject          string         `bson:"subject"`
	Body             string         `bson:"body"`
	DigitalSignature string         `bson:"digital_signature,omitempty"`
	PublicKey        string         `bson:"public_key,omitempty"`
	LetterID         string         `bson:"letter_id,omitempty"`
	Attachment       *attachmentDoc `bson:"attachment,omitempty"`
	SentAt           time.Time      `bson:"sent_at"`
}

func docToMessage(doc *messageDoc) *store.Message {
	msg := &store.Message{
		ID:               doc.ID.Hex(),
		OwnerID:          doc.OwnerID,
		From:             doc.From,
		To:               doc.To,
		Subject:          doc.Subject,
		Body:             doc.Body,
		DigitalSignature: doc.DigitalSignature,
		PublicKey:        doc.PublicKey,
		LetterID:         doc.LetterID,
		SentAt:           doc.SentAt,
	}
	if doc.Attachment != nil {
		msg.Attachment = &store.Attachment{
			Filename: doc.Attachment.Filename,
			Data:     doc.Attachment.Data,
		}
	}
	return msg
}

// CreateMessage persists a message with a server-assigned send timestamp.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	doc := &messageDoc{
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
		doc.Attachment = &attachmentDoc{
			Filename: data.Attachment.Filename,
			Data:     data.Attachment.Data,
		}
	}

	result, err := s.messages.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if oid, ok := result.InsertedID.(bson.ObjectID); ok {
		doc.ID = oid
	}
	return docToMessage(doc), nil
}

// ListMessagesFor returns the combined inbox and outbox with a single $or
// query across the two key spaces, sorted by sent_at descending and capped.
func (s *Store) ListMessagesFor(ctx context.Context, accountID, address string, limit int) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if accountID == "" {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{"$or": bson.A{
		bson.M{"owner_id": accountID},
		bson.M{"to": address},
	}}

	findOpts := mongoopts.Find().
		SetSort(bson.D{bson.E{Key: "sent_at", Value: -1}})
	if limit > 0 {
		findOpts = findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.messages.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []*store.Message
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msgs = append(msgs, docToMessage(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
