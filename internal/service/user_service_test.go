package service

import (
	"context"
	"testing"
)

func TestProvision_Idempotent(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewUserService(repos, nil, testLogger())

	for i := 0; i < 2; i++ {
		if err := svc.Provision(ctx, "user-1"); err != nil {
			t.Fatalf("provision %d: %v", i+1, err)
		}
	}

	account, err := repos.Credits.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account == nil {
		t.Fatal("account was not created")
	}
	if account.TotalCredits != 0 || account.UsedCredits != 0 {
		t.Errorf("account = %+v, want zero balances", account)
	}
}

func TestProvision_RequiresUserID(t *testing.T) {
	svc := NewUserService(setupTestRepos(t), nil, testLogger())
	if err := svc.Provision(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestPurge_RemovesBillingState(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	svc := NewUserService(repos, nil, testLogger())

	ledger := NewLedgerService(repos, testLogger())
	if _, err := ledger.Grant(ctx, "user-1", 10, "seed"); err != nil {
		t.Fatalf("failed to seed credits: %v", err)
	}

	if err := svc.Purge(ctx, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	account, err := repos.Credits.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("failed to read account: %v", err)
	}
	if account != nil {
		t.Error("credit account still exists after purge")
	}
	history, err := ledger.History(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatalf("failed to read history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("len(history) = %d after purge, want 0", len(history))
	}
}
