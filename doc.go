// Package letterdesk provides a letter-request, signing, and delivery
// library for Go.
//
// Members of an organisation request formal letters (leave letters, bonafide
// certificates, internship letters), an authorised signatory attaches a
// signature to the request, and the rendered document is delivered as a PDF
// attachment on an internal message record that both parties can retrieve.
// All functionality is exposed via a Service with pluggable storage backends
// (MongoDB, PostgreSQL, in-memory).
//
// # Basic Usage
//
//	// Create in-memory store for testing
//	st := memory.New()
//
//	// Create the service
//	svc, err := letterdesk.NewService(
//	    letterdesk.WithStore(st),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect initializes indexes/schema
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Create and sign a letter
//	letter, err := svc.CreateLetter(ctx, letterdesk.LetterRequest{
//	    OwnerID: student.ID,
//	    Name:    "Medical leave",
//	    Type:    store.LetterLeave,
//	    Form:    store.FormData{StartDate: "2025-03-01", EndDate: "2025-03-04", Reason: "fever"},
//	})
//	signed, err := svc.SignLetter(ctx, letter.ID, advisor.ID, signatureImage)
//
//	// Deliver the rendered document
//	msg, err := svc.Send(ctx, letterdesk.SendRequest{
//	    From:        student.Address,
//	    To:          "dean@college.edu",
//	    Subject:     "Leave letter",
//	    Body:        "Signed leave letter attached.",
//	    AccountID:   student.ID,
//	    Document:    pdfBytes,
//	    Filename:    "leave.pdf",
//	    ContentType: "application/pdf",
//	})
//
//	// Combined inbox and outbox, newest first, capped
//	msgs, err := svc.Messages(ctx, student.ID)
//
// # Storage Backends
//
// The store package provides implementations for:
//   - MongoDB (store/mongo) - accepts *mongo.Client
//   - PostgreSQL (store/postgres) - accepts *sqlx.DB
//   - In-memory (store/memory) - for testing
//
// # Events
//
// Letterdesk provides typed events for lifecycle notifications. Events use
// the github.com/rbaliyan/event/v3 library. To enable events over Redis,
// pass WithRedisClient when creating the service; without a transport the
// bus is a no-op.
//
//	events := svc.Events()
//	events.MessageSent.Subscribe(ctx, handler)
//	events.LetterSigned.Subscribe(ctx, handler)
package letterdesk
