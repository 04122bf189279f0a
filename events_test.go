package letterdesk

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/avirel/letterdesk/store"
	"github.com/avirel/letterdesk/store/memory"
)

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

func TestEventsWithRedisTransport(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(
		WithStore(memory.New()),
		WithRedisClient(setupRedis(t)),
		WithServiceName("letterdesk-test"),
	)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer svc.Close(ctx)

	if svc.Events() == nil {
		t.Fatal("expected registered event instances after connect")
	}

	// Operations that publish events must still succeed over the Redis bus.
	sender := mustRegister(t, svc, RegisterRequest{
		Name: "Asha Nair", Address: "asha@college.example", Secret: "pw",
		Roles: []store.Role{store.RoleStudent},
	})
	hod := mustRegister(t, svc, RegisterRequest{
		Name: "Dr. Mehta", Address: "mehta@college.example", Secret: "pw",
		Roles: []store.Role{store.RoleHOD},
	})

	letter, err := svc.CreateLetter(ctx, LetterRequest{
		OwnerID: sender.ID, Name: sender.Name, Type: store.LetterBonafide,
		Form: store.FormData{Reason: "passport application"},
	})
	if err != nil {
		t.Fatalf("create letter failed: %v", err)
	}
	if _, err := svc.SignLetter(ctx, letter.ID, hod.ID, "data:image/png;base64,aGVsbG8="); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := svc.Send(ctx, SendRequest{
		From: sender.Address, To: "dean@college.example",
		Subject: "Bonafide", Body: "attached", AccountID: sender.ID,
		LetterID: letter.ID,
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := svc.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestEventsIndependentPerService(t *testing.T) {
	ctx := context.Background()

	a := setupTestService(t)
	b := setupTestService(t)

	if a.Events() == b.Events() {
		t.Error("expected per-service event instances")
	}

	// Both services operate without cross-talk on the shared process.
	acctA := mustRegister(t, a, RegisterRequest{
		Name: "Only A", Address: "a@college.example", Secret: "pw",
	})
	if _, err := a.Send(ctx, SendRequest{
		From: acctA.Address, To: "dean@college.example",
		Subject: "s", Body: "b", AccountID: acctA.ID,
	}); err != nil {
		t.Fatalf("send on service A failed: %v", err)
	}

	if _, err := b.AccountByAddress(ctx, "a@college.example"); err == nil {
		t.Error("service B should not see service A's accounts")
	}
}
