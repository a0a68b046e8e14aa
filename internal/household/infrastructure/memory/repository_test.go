package memory

import (
	"context"
	"errors"
	"testing"

	household "homevault/internal/household/domain"
)

func TestAccountRepository_RoundTrip(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	account, err := household.NewAccount("acct-1", "owner", "usdc", "feed-usdc")
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if err := repo.Save(ctx, account); err != nil {
		t.Fatalf("save: %v", err)
	}
	if account.IsNew() {
		t.Fatal("save must mark the account persisted")
	}

	loaded, err := repo.FindByID(ctx, "acct-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if loaded == nil || loaded.Owner() != "owner" {
		t.Fatalf("unexpected account: %+v", loaded)
	}

	// Mutating the loaded copy must not leak into the stored state.
	if err := loaded.AddMember("owner", "alice"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	again, err := repo.FindByID(ctx, "acct-1")
	if err != nil {
		t.Fatalf("find again: %v", err)
	}
	if again.IsMember("alice") {
		t.Fatal("repository returned a shared reference")
	}
}

func TestAccountRepository_MissingAndInvalid(t *testing.T) {
	repo := NewAccountRepository()
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, ""); !errors.Is(err, household.ErrEmptyAccountID) {
		t.Fatalf("expected ErrEmptyAccountID, got %v", err)
	}
	account, err := repo.FindByID(ctx, "absent")
	if err != nil {
		t.Fatalf("find absent: %v", err)
	}
	if account != nil {
		t.Fatal("expected nil for missing account")
	}
	if err := repo.Save(ctx, nil); !errors.Is(err, household.ErrNilAccount) {
		t.Fatalf("expected ErrNilAccount, got %v", err)
	}
}
