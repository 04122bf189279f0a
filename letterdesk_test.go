package letterdesk

import (
	"context"
	"errors"
	"testing"

	"github.com/avirel/letterdesk/store"
	"github.com/avirel/letterdesk/store/memory"
)

// Helper to setup a connected test service.
func setupTestService(t *testing.T, opts ...Option) Service {
	t.Helper()

	svc, err := NewService(append([]Option{WithStore(memory.New())}, opts...)...)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { svc.Close(context.Background()) })

	return svc
}

// Helper to register an account and fail the test on error.
func mustRegister(t *testing.T, svc Service, req RegisterRequest) *store.Account {
	t.Helper()
	account, err := svc.RegisterAccount(context.Background(), req)
	if err != nil {
		t.Fatalf("failed to register %q: %v", req.Address, err)
	}
	return account
}

func TestNewService(t *testing.T) {
	t.Run("requires store", func(t *testing.T) {
		_, err := NewService()
		if !errors.Is(err, ErrStoreRequired) {
			t.Errorf("expected ErrStoreRequired, got %v", err)
		}
	})

	t.Run("creates service with store", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc == nil {
			t.Fatal("expected non-nil service")
		}
		if svc.IsConnected() {
			t.Error("new service should not report connected")
		}
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("connect and close", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := svc.Connect(ctx); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		if !svc.IsConnected() {
			t.Error("expected connected state")
		}

		// Double connect should fail
		if err := svc.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
			t.Errorf("expected ErrAlreadyConnected, got %v", err)
		}

		if err := svc.Close(ctx); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		// Double close should be safe
		if err := svc.Close(ctx); err != nil {
			t.Errorf("second close should not error, got %v", err)
		}
	})

	t.Run("operations fail when not connected", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = svc.RegisterAccount(ctx, RegisterRequest{
			Name: "Asha", Address: "asha@college.example", Secret: "hunter2",
		})
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}

		_, err = svc.Messages(ctx, "some-id")
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})
}

func TestRegisterAccount(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	t.Run("registers and hashes credential", func(t *testing.T) {
		account := mustRegister(t, svc, RegisterRequest{
			Name:       "Asha Nair",
			Address:    "asha@college.example",
			Secret:     "hunter2",
			Roles:      []store.Role{store.RoleStudent},
			Department: "CSE",
		})
		if account.ID == "" {
			t.Fatal("expected generated id")
		}
		if len(account.CredentialHash) == 0 {
			t.Fatal("expected credential hash")
		}
		if string(account.CredentialHash) == "hunter2" {
			t.Error("credential stored in plaintext")
		}
	})

	t.Run("duplicate address yields conflict", func(t *testing.T) {
		_, err := svc.RegisterAccount(ctx, RegisterRequest{
			Name: "Other Asha", Address: "asha@college.example", Secret: "different",
		})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		cases := []struct {
			name string
			req  RegisterRequest
		}{
			{"no address", RegisterRequest{Name: "A", Secret: "s"}},
			{"no name", RegisterRequest{Address: "a@college.example", Secret: "s"}},
			{"no secret", RegisterRequest{Name: "A", Address: "b@college.example"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.RegisterAccount(ctx, tc.req)
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
			})
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	registered := mustRegister(t, svc, RegisterRequest{
		Name: "Ravi Kumar", Address: "ravi@college.example", Secret: "s3cret",
	})

	t.Run("valid credentials", func(t *testing.T) {
		account, err := svc.Login(ctx, "ravi@college.example", "s3cret")
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if account.ID != registered.ID {
			t.Errorf("login returned id %q, want %q", account.ID, registered.ID)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.Login(ctx, "ravi@college.example", "wrong")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := svc.Login(ctx, "ghost@college.example", "s3cret")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAccountLookup(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	account := mustRegister(t, svc, RegisterRequest{
		Name: "Meena Pillai", Address: "meena@college.example", Secret: "pw",
		Roles: []store.Role{store.RoleStaffAdvisor},
	})

	t.Run("by id", func(t *testing.T) {
		got, err := svc.Account(ctx, account.ID)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if got.Address != account.Address {
			t.Errorf("got address %q, want %q", got.Address, account.Address)
		}
	})

	t.Run("by address", func(t *testing.T) {
		got, err := svc.AccountByAddress(ctx, "meena@college.example")
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if got.ID != account.ID {
			t.Errorf("got id %q, want %q", got.ID, account.ID)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Account(ctx, "no-such-account")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("directory matches service lookups", func(t *testing.T) {
		got, err := svc.Directory().ByID(ctx, account.ID)
		if err != nil {
			t.Fatalf("directory lookup failed: %v", err)
		}
		if got.ID != account.ID {
			t.Errorf("got id %q, want %q", got.ID, account.ID)
		}
	})
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	account := mustRegister(t, svc, RegisterRequest{
		Name: "Vikram Rao", Address: "vikram@college.example", Secret: "pw",
	})

	t.Run("applies partial update", func(t *testing.T) {
		section := "B"
		updated, err := svc.UpdateAccount(ctx, account.ID, store.AccountUpdate{Section: &section})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if updated.Section != "B" {
			t.Errorf("section not applied: %q", updated.Section)
		}
		if updated.Name != "Vikram Rao" {
			t.Errorf("name should be untouched, got %q", updated.Name)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		name := "Nobody"
		_, err := svc.UpdateAccount(ctx, "no-such-account", store.AccountUpdate{Name: &name})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAccountsExcludeRole(t *testing.T) {
	ctx := context.Background()
	svc := setupTestService(t)

	mustRegister(t, svc, RegisterRequest{
		Name: "Student One", Address: "s1@college.example", Secret: "pw",
		Roles: []store.Role{store.RoleStudent},
	})
	mustRegister(t, svc, RegisterRequest{
		Name: "Advisor", Address: "advisor@college.example", Secret: "pw",
		Roles: []store.Role{store.RoleStaffAdvisor},
	})
	mustRegister(t, svc, RegisterRequest{
		Name: "Warden Who Studies", Address: "both@college.example", Secret: "pw",
		Roles: []store.Role{store.RoleStudent, store.RoleWarden},
	})

	all, err := svc.Accounts(ctx, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(all))
	}

	staff, err := svc.Accounts(ctx, store.RoleStudent)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(staff) != 1 {
		t.Fatalf("expected 1 account without student role, got %d", len(staff))
	}
	if staff[0].Address != "advisor@college.example" {
		t.Errorf("wrong account survived exclusion: %q", staff[0].Address)
	}
}
