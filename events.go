package letterdesk

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for letterdesk events.
const (
	EventNameMessageSent  = "letterdesk.message.sent"
	EventNameLetterSigned = "letterdesk.letter.signed"
)

// MessageSentEvent is published when a message is delivered.
type MessageSentEvent struct {
	MessageID     string    `json:"message_id"`
	AccountID     string    `json:"account_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Subject       string    `json:"subject"`
	HasAttachment bool      `json:"has_attachment"`
	SentAt        time.Time `json:"sent_at"`
}

// LetterSignedEvent is published when a signature is bound to a letter.
type LetterSignedEvent struct {
	LetterID   string    `json:"letter_id"`
	OwnerID    string    `json:"owner_id"`
	SignedByID string    `json:"signed_by_id"`
	SignedAt   time.Time `json:"signed_at"`
}

// ServiceEvents provides access to per-service event instances. Each service
// creates its own events bound to its own event bus, enabling independent
// event routing and parallel testing.
//
// Subscribe to events:
//
//	svc.Events().MessageSent.Subscribe(ctx, handler)
//	svc.Events().LetterSigned.Subscribe(ctx, handler)
type ServiceEvents struct {
	// MessageSent is published when a message is delivered.
	MessageSent event.Event[MessageSentEvent]

	// LetterSigned is published when a letter is signed.
	LetterSigned event.Event[LetterSignedEvent]
}

// newServiceEvents creates per-service event instances with a unique name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageSent:  event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		LetterSigned: event.New[LetterSignedEvent](namePrefix + "." + EventNameLetterSigned),
	}
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.LetterSigned); err != nil {
		return fmt.Errorf("register LetterSigned: %w", err)
	}
	return nil
}
