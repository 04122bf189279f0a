package letterdesk

import (
	"context"
	"errors"
	"testing"

	"github.com/avirel/letterdesk/store"
)

func TestCreateLetter(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	owner := mustRegister(t, svc, RegisterRequest{
		Name: "Asha Nair", Address: "asha@college.example", Secret: "pw",
		Roles: []store.Role{store.RoleStudent},
	})

	t.Run("creates unsigned letter", func(t *testing.T) {
		letter, err := svc.CreateLetter(ctx, LetterRequest{
			OwnerID: owner.ID,
			Name:    owner.Name,
			Type:    store.LetterLeave,
			Form: store.FormData{
				StartDate: "2026-09-01",
				EndDate:   "2026-09-03",
				Reason:    "family function",
			},
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if letter.Signed() {
			t.Error("new letter should be unsigned")
		}
		if letter.Type != store.LetterLeave {
			t.Errorf("got type %q, want leave", letter.Type)
		}
	})

	t.Run("per-type required fields", func(t *testing.T) {
		cases := []struct {
			name string
			typ  store.LetterType
			form store.FormData
		}{
			{"leave without dates", store.LetterLeave, store.FormData{Reason: "r"}},
			{"bonafide without reason", store.LetterBonafide, store.FormData{}},
			{"internship without company", store.LetterInternship, store.FormData{
				StartDate: "2026-09-01", EndDate: "2026-12-01",
			}},
			{"industrial visit without location", store.LetterIndustrialVisit, store.FormData{
				Date: "2026-10-05", NumberOfStudents: "42",
			}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.CreateLetter(ctx, LetterRequest{
					OwnerID: owner.ID, Name: owner.Name, Type: tc.typ, Form: tc.form,
				})
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
			})
		}
	})

	t.Run("rejected letter is not persisted", func(t *testing.T) {
		before, err := svc.Letters(ctx, owner.ID)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}

		_, err = svc.CreateLetter(ctx, LetterRequest{
			OwnerID: owner.ID, Name: owner.Name, Type: store.LetterBonafide,
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}

		after, err := svc.Letters(ctx, owner.ID)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(after) != len(before) {
			t.Errorf("rejected letter persisted: %d -> %d", len(before), len(after))
		}
	})

	t.Run("unknown owner rejected", func(t *testing.T) {
		_, err := svc.CreateLetter(ctx, LetterRequest{
			OwnerID: "no-such-account",
			Name:    "Ghost",
			Type:    store.LetterBonafide,
			Form:    store.FormData{Reason: "r"},
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("list in creation order", func(t *testing.T) {
		other := mustRegister(t, svc, RegisterRequest{
			Name: "Ravi Kumar", Address: "ravi@college.example", Secret: "pw",
		})
		for _, reason := range []string{"first", "second", "third"} {
			_, err := svc.CreateLetter(ctx, LetterRequest{
				OwnerID: other.ID, Name: other.Name, Type: store.LetterBonafide,
				Form: store.FormData{Reason: reason},
			})
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
		}

		letters, err := svc.Letters(ctx, other.ID)
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

	t.Run("get unknown letter", func(t *testing.T) {
		_, err := svc.Letter(ctx, "no-such-letter")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSignLetter(t *testing.T) {
	ctx := context.Background()

	type fixture struct {
		svc    Service
		owner  *store.Account
		signer *store.Account
		letter *store.Letter
	}

	setup := func(t *testing.T, opts ...Option) fixture {
		t.Helper()
		svc := setupTestService(t, opts...)
		owner := mustRegister(t, svc, RegisterRequest{
			Name: "Asha Nair", Address: "asha@college.example", Secret: "pw",
			Roles: []store.Role{store.RoleStudent},
		})
		signer := mustRegister(t, svc, RegisterRequest{
			Name: "Dr. Mehta", Address: "mehta@college.example", Secret: "pw",
			Roles: []store.Role{store.RoleHOD},
		})
		letter, err := svc.CreateLetter(ctx, LetterRequest{
			OwnerID: owner.ID, Name: owner.Name, Type: store.LetterBonafide,
			Form: store.FormData{Reason: "bank account opening"},
		})
		if err != nil {
			t.Fatalf("create letter failed: %v", err)
		}
		return fixture{svc, owner, signer, letter}
	}

	const image = "data:image/png;base64,aGVsbG8="

	t.Run("signs with snapshot of signer", func(t *testing.T) {
		f := setup(t)

		signed, err := f.svc.SignLetter(ctx, f.letter.ID, f.signer.ID, image)
		if err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		if !signed.Signed() {
			t.Fatal("expected signed letter")
		}
		if signed.Signature.SignedBy != "Dr. Mehta" || signed.Signature.SignedByID != f.signer.ID {
			t.Errorf("signer snapshot wrong: %+v", signed.Signature)
		}
		if signed.Signature.SignedAt.IsZero() {
			t.Error("expected server-assigned timestamp")
		}
		if signed.Form.Reason != "bank account opening" {
			t.Errorf("form data changed by signing: %+v", signed.Form)
		}
	})

	t.Run("second sign fails regardless of signer", func(t *testing.T) {
		f := setup(t)
		if _, err := f.svc.SignLetter(ctx, f.letter.ID, f.signer.ID, image); err != nil {
			t.Fatalf("first sign failed: %v", err)
		}

		other := mustRegister(t, f.svc, RegisterRequest{
			Name: "Principal", Address: "principal@college.example", Secret: "pw",
			Roles: []store.Role{store.RolePrincipal},
		})
		_, err := f.svc.SignLetter(ctx, f.letter.ID, other.ID, image)
		if !errors.Is(err, ErrAlreadySigned) {
			t.Errorf("expected ErrAlreadySigned, got %v", err)
		}

		// Original signature intact.
		letter, err := f.svc.Letter(ctx, f.letter.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if letter.Signature.SignedByID != f.signer.ID {
			t.Errorf("signature replaced: %+v", letter.Signature)
		}
	})

	t.Run("student may not sign", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.SignLetter(ctx, f.letter.ID, f.owner.ID, image)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("custom sign policy", func(t *testing.T) {
		principalOnly := func(roles []store.Role, _ store.LetterType) bool {
			for _, r := range roles {
				if r == store.RolePrincipal {
					return true
				}
			}
			return false
		}
		f := setup(t, WithSignPolicy(principalOnly))

		// HOD no longer passes the policy.
		_, err := f.svc.SignLetter(ctx, f.letter.ID, f.signer.ID, image)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown signer", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.SignLetter(ctx, f.letter.ID, "no-such-signer", image)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unknown letter", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.SignLetter(ctx, "no-such-letter", f.signer.ID, image)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing signature image", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.SignLetter(ctx, f.letter.ID, f.signer.ID, "")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}
