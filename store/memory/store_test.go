package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/avirel/letterdesk/store"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("operations require connect", func(t *testing.T) {
		s := New()
		_, err := s.GetAccount(ctx, "some-id")
		if !errors.Is(err, store.ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("double connect fails", func(t *testing.T) {
		s := New()
		if err := s.Connect(ctx); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		if err := s.Connect(ctx); !errors.Is(err, store.ErrAlreadyConnected) {
			t.Errorf("expected ErrAlreadyConnected, got %v", err)
		}
	})
}

func TestAccountOperations(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	t.Run("create and get", func(t *testing.T) {
		created, err := s.CreateAccount(ctx, store.AccountData{
			Name:    "Asha Nair",
			Address: "asha@college.example",
			Roles:   []store.Role{store.RoleStudent},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if created.ID == "" {
			t.Fatal("expected generated id")
		}

		got, err := s.GetAccount(ctx, created.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Address != "asha@college.example" {
			t.Errorf("expected address to round-trip, got %q", got.Address)
		}

		byAddr, err := s.GetAccountByAddress(ctx, "asha@college.example")
		if err != nil {
			t.Fatalf("get by address failed: %v", err)
		}
		if byAddr.ID != created.ID {
			t.Errorf("address lookup returned id %q, want %q", byAddr.ID, created.ID)
		}
	})

	t.Run("duplicate address rejected", func(t *testing.T) {
		_, err := s.CreateAccount(ctx, store.AccountData{
			Name:    "Second Asha",
			Address: "asha@college.example",
		})
		if !errors.Is(err, store.ErrDuplicateEntry) {
			t.Errorf("expected ErrDuplicateEntry, got %v", err)
		}
	})

	t.Run("concurrent registrations of same address", func(t *testing.T) {
		const n = 10
		var wg sync.WaitGroup
		var successes int32
		errCh := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.CreateAccount(ctx, store.AccountData{
					Name:    "Racer",
					Address: "racer@college.example",
				})
				errCh <- err
			}()
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			if err == nil {
				successes++
			} else if !errors.Is(err, store.ErrDuplicateEntry) {
				t.Errorf("unexpected error: %v", err)
			}
		}
		if successes != 1 {
			t.Errorf("expected exactly one successful registration, got %d", successes)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		created, err := s.CreateAccount(ctx, store.AccountData{
			Name:       "Ravi Kumar",
			Address:    "ravi@college.example",
			Department: "CSE",
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		hostel := "Block A"
		hosteller := true
		updated, err := s.UpdateAccount(ctx, created.ID, store.AccountUpdate{
			Hosteller:  &hosteller,
			HostelName: &hostel,
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if !updated.Hosteller || updated.HostelName != "Block A" {
			t.Errorf("hostel fields not applied: %+v", updated)
		}
		if updated.Name != "Ravi Kumar" || updated.Department != "CSE" {
			t.Errorf("untouched fields changed: %+v", updated)
		}
	})

	t.Run("update missing account", func(t *testing.T) {
		name := "Nobody"
		_, err := s.UpdateAccount(ctx, "no-such-id", store.AccountUpdate{Name: &name})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list excludes role", func(t *testing.T) {
		s := setupStore(t)
		for i, roles := range [][]store.Role{
			{store.RoleStudent},
			{store.RoleStaffAdvisor},
			{store.RoleStudent, store.RoleSubWarden},
			{store.RoleHOD},
		} {
			_, err := s.CreateAccount(ctx, store.AccountData{
				Name:    fmt.Sprintf("acct-%d", i),
				Address: fmt.Sprintf("acct-%d@college.example", i),
				Roles:   roles,
			})
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
		}

		all, err := s.ListAccounts(ctx, "")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("expected 4 accounts, got %d", len(all))
		}

		staff, err := s.ListAccounts(ctx, store.RoleStudent)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(staff) != 2 {
			t.Fatalf("expected 2 non-student accounts, got %d", len(staff))
		}
		for _, a := range staff {
			if a.HasRole(store.RoleStudent) {
				t.Errorf("account %q carries excluded role", a.Name)
			}
		}
	})
}

func TestLetterOperations(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	t.Run("create unsigned", func(t *testing.T) {
		letter, err := s.CreateLetter(ctx, store.LetterData{
			OwnerID: "owner-1",
			Name:    "Asha Nair",
			Type:    store.LetterLeave,
			Form:    store.FormData{StartDate: "2026-09-01", EndDate: "2026-09-03", Reason: "family function"},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if letter.Signed() {
			t.Error("new letter should be unsigned")
		}
		if letter.Form.Reason != "family function" {
			t.Errorf("form data lost: %+v", letter.Form)
		}
	})

	t.Run("list in insertion order", func(t *testing.T) {
		s := setupStore(t)
		for _, reason := range []string{"first", "second", "third"} {
			_, err := s.CreateLetter(ctx, store.LetterData{
				OwnerID: "owner-2",
				Type:    store.LetterLeave,
				Form:    store.FormData{Reason: reason},
			})
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
		}
		_, err := s.CreateLetter(ctx, store.LetterData{OwnerID: "someone-else", Type: store.LetterBonafide})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		letters, err := s.ListLetters(ctx, "owner-2")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(letters) != 3 {
			t.Fatalf("expected 3 letters, got %d", len(letters))
		}
		for i, want := range []string{"first", "second", "third"} {
			if letters[i].Form.Reason != want {
				t.Errorf("position %d: got %q, want %q", i, letters[i].Form.Reason, want)
			}
		}
	})

	t.Run("get missing letter", func(t *testing.T) {
		_, err := s.GetLetter(ctx, "no-such-letter")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSetSignature(t *testing.T) {
	ctx := context.Background()

	newLetter := func(t *testing.T, s *Store) *store.Letter {
		t.Helper()
		letter, err := s.CreateLetter(ctx, store.LetterData{
			OwnerID: "owner-1",
			Type:    store.LetterBonafide,
			Form:    store.FormData{Reason: "bank account opening"},
		})
		if err != nil {
			t.Fatalf("create letter failed: %v", err)
		}
		return letter
	}

	t.Run("signs once", func(t *testing.T) {
		s := setupStore(t)
		letter := newLetter(t, s)

		signed, err := s.SetSignature(ctx, letter.ID, store.Signature{
			Image:      "data:image/png;base64,aGVsbG8=",
			SignedBy:   "Dr. Mehta",
			SignedByID: "signer-1",
		})
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		if !signed.Signed() {
			t.Fatal("expected signed letter")
		}
		if signed.Signature.SignedBy != "Dr. Mehta" {
			t.Errorf("signature snapshot wrong: %+v", signed.Signature)
		}
		if signed.Form.Reason != "bank account opening" {
			t.Errorf("form data changed by signing: %+v", signed.Form)
		}

		_, err = s.SetSignature(ctx, letter.ID, store.Signature{SignedByID: "signer-2"})
		if !errors.Is(err, store.ErrAlreadySigned) {
			t.Errorf("expected ErrAlreadySigned, got %v", err)
		}
	})

	t.Run("missing letter", func(t *testing.T) {
		s := setupStore(t)
		_, err := s.SetSignature(ctx, "no-such-letter", store.Signature{SignedByID: "signer-1"})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("concurrent signers", func(t *testing.T) {
		s := setupStore(t)
		letter := newLetter(t, s)

		const n = 8
		var wg sync.WaitGroup
		errCh := make(chan error, n)
		for i := 0; i < n; i++ {
			signerID := fmt.Sprintf("signer-%d", i)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.SetSignature(ctx, letter.ID, store.Signature{SignedByID: signerID})
				errCh <- err
			}()
		}
		wg.Wait()
		close(errCh)

		var successes int
		for err := range errCh {
			if err == nil {
				successes++
			} else if !errors.Is(err, store.ErrAlreadySigned) {
				t.Errorf("unexpected error: %v", err)
			}
		}
		if successes != 1 {
			t.Errorf("expected exactly one successful sign, got %d", successes)
		}
	})
}

func TestMessageOperations(t *testing.T) {
	ctx := context.Background()

	send := func(t *testing.T, s *Store, ownerID, to, subject string) *store.Message {
		t.Helper()
		msg, err := s.CreateMessage(ctx, store.MessageData{
			OwnerID: ownerID,
			From:    "noreply@college.example",
			To:      to,
			Subject: subject,
			Body:    "see attachment",
		})
		if err != nil {
			t.Fatalf("create message failed: %v", err)
		}
		return msg
	}

	t.Run("matches sender and recipient", func(t *testing.T) {
		s := setupStore(t)
		send(t, s, "alice-id", "bob@college.example", "from alice")
		send(t, s, "bob-id", "alice@college.example", "to alice")
		send(t, s, "carol-id", "dave@college.example", "unrelated")

		msgs, err := s.ListMessagesFor(ctx, "alice-id", "alice@college.example", 10)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(msgs))
		}
		for _, m := range msgs {
			if m.Subject == "unrelated" {
				t.Error("third-party message leaked into listing")
			}
		}
	})

	t.Run("newest first with limit", func(t *testing.T) {
		s := setupStore(t)
		for i := 0; i < 15; i++ {
			send(t, s, "alice-id", "bob@college.example", fmt.Sprintf("msg-%d", i))
		}

		msgs, err := s.ListMessagesFor(ctx, "alice-id", "alice@college.example", 10)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(msgs) != 10 {
			t.Fatalf("expected limit of 10, got %d", len(msgs))
		}
		if msgs[0].Subject != "msg-14" {
			t.Errorf("expected newest first, got %q", msgs[0].Subject)
		}
		for i := 1; i < len(msgs); i++ {
			if msgs[i].SentAt.After(msgs[i-1].SentAt) {
				t.Errorf("messages out of order at %d", i)
			}
		}
	})

	t.Run("attachment does not alias stored record", func(t *testing.T) {
		s := setupStore(t)
		msg, err := s.CreateMessage(ctx, store.MessageData{
			OwnerID:    "alice-id",
			From:       "alice@college.example",
			To:         "bob@college.example",
			Subject:    "signed letter",
			Attachment: &store.Attachment{Filename: "letter.pdf", Data: "JVBERi0xLjQ="},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		msg.Attachment.Filename = "tampered.pdf"

		msgs, err := s.ListMessagesFor(ctx, "alice-id", "alice@college.example", 10)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if msgs[0].Attachment.Filename != "letter.pdf" {
			t.Errorf("stored record mutated through returned copy: %q", msgs[0].Attachment.Filename)
		}
	})
}
