package store

import "time"

// Attachment is an encoded document embedded in a message: the text-safe
// encoded bytes plus the original filename. Attachments are stored inline
// with the message record, never externally.
type Attachment struct {
	Filename string
	Data     string
}

// Message is a delivery record. It is created once at send time and never
// updated. OwnerID is the account that initiated the send; To is a free-form
// address string that need not resolve to a known account.
type Message struct {
	ID      string
	OwnerID string
	From    string
	To      string
	Subject string
	Body    string

	// Optional attestation fields, carried verbatim and never verified here.
	DigitalSignature string
	PublicKey        string

	// LetterID optionally records which letter the attachment was rendered
	// from. The attachment itself is a detached snapshot; no integrity
	// constraint ties the two records together.
	LetterID string

	Attachment *Attachment
	SentAt     time.Time
}

// MessageData carries the fields for creating a message.
// SentAt is assigned by the store, never by the caller.
type MessageData struct {
	OwnerID          string
	From             string
	To               string
	Subject          string
	Body             string
	DigitalSignature string
	PublicKey        string
	LetterID         string
	Attachment       *Attachment
}
