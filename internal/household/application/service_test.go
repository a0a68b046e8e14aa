package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"homevault/internal/eventing"
	household "homevault/internal/household/domain"
	"homevault/internal/household/infrastructure/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *eventing.InMemoryBus) {
	t.Helper()
	bus := eventing.NewInMemoryBus()
	svc, err := NewService(memory.NewAccountRepository(), bus, nil, fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, bus
}

func TestCreateAccountAndSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateAccount(ctx, "acc-1", "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}

	snap, err := svc.GetSnapshot(ctx, "acc-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Owner != "alice" {
		t.Fatalf("expected owner alice, got %s", snap.Owner)
	}
	if snap.SettlementAsset != "USDC" || snap.SettlementFeed != "feed-usdc" {
		t.Fatalf("unexpected settlement config: %s/%s", snap.SettlementAsset, snap.SettlementFeed)
	}
}

func TestCreateAccountDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateAccount(ctx, "acc-1", "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := svc.CreateAccount(ctx, "acc-1", "bob", "USDC", "feed-usdc"); !errors.Is(err, household.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAddMemberPublishesEvent(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	var captured []MemberAdded
	bus.Subscribe(eventing.EventTypeOf[MemberAdded](), func(ctx context.Context, event any) error {
		captured = append(captured, event.(MemberAdded))
		return nil
	})

	if err := svc.CreateAccount(ctx, "acc-1", "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := svc.AddMember(ctx, "acc-1", "alice", "bob"); err != nil {
		t.Fatalf("add member: %v", err)
	}

	if len(captured) != 1 {
		t.Fatalf("expected 1 event, got %d", len(captured))
	}
	if captured[0].Principal != "bob" || captured[0].Actor != "alice" {
		t.Fatalf("unexpected event payload: %+v", captured[0])
	}
}

func TestRemoveMemberRequiresTrusted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateAccount(ctx, "acc-1", "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := svc.AddMember(ctx, "acc-1", "alice", "bob"); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if err := svc.AddMember(ctx, "acc-1", "alice", "carol"); err != nil {
		t.Fatalf("add carol: %v", err)
	}

	if err := svc.RemoveMember(ctx, "acc-1", "bob", "carol"); !errors.Is(err, household.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.GrantRole(ctx, "acc-1", "alice", "bob", "trusted"); err != nil {
		t.Fatalf("grant trusted: %v", err)
	}
	if err := svc.RemoveMember(ctx, "acc-1", "bob", "carol"); err != nil {
		t.Fatalf("remove carol: %v", err)
	}
	if err := svc.RemoveMember(ctx, "acc-1", "bob", "alice"); !errors.Is(err, household.ErrCannotRemoveOwner) {
		t.Fatalf("expected ErrCannotRemoveOwner, got %v", err)
	}
}

func TestGrantRoleUnknownRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateAccount(ctx, "acc-1", "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := svc.GrantRole(ctx, "acc-1", "alice", "bob", "janitor"); !errors.Is(err, household.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestDepositRequiresOperator(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateAccount(ctx, "acc-1", "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := svc.AddMember(ctx, "acc-1", "alice", "bob"); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	amount := decimal.RequireFromString("100")
	if err := svc.Deposit(ctx, "acc-1", "bob", "WETH", amount); !errors.Is(err, household.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.Deposit(ctx, "acc-1", "alice", "WETH", amount); err != nil {
		t.Fatalf("owner deposit: %v", err)
	}

	snap, err := svc.GetSnapshot(ctx, "acc-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Balances["WETH"] != "100" {
		t.Fatalf("expected balance 100, got %s", snap.Balances["WETH"])
	}
}

func TestRemoveAssetEmitsRemovedAssetID(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	var captured []CryptoRemoved
	bus.Subscribe(eventing.EventTypeOf[CryptoRemoved](), func(ctx context.Context, event any) error {
		captured = append(captured, event.(CryptoRemoved))
		return nil
	})

	if err := svc.CreateAccount(ctx, "acc-1", "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	for _, asset := range []string{"WETH", "WBTC", "LINK"} {
		if err := svc.AddAsset(ctx, "acc-1", "alice", asset, "feed-"+asset); err != nil {
			t.Fatalf("add asset %s: %v", asset, err)
		}
	}

	if err := svc.RemoveAsset(ctx, "acc-1", "alice", 0); err != nil {
		t.Fatalf("remove asset: %v", err)
	}
	if len(captured) != 1 || captured[0].AssetID != "WETH" {
		t.Fatalf("expected removal event for WETH, got %+v", captured)
	}

	assets, err := svc.ListAssets(ctx, "acc-1")
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	if len(assets) != 2 || assets[0].AssetID != "LINK" || assets[1].AssetID != "WBTC" {
		t.Fatalf("unexpected portfolio after removal: %+v", assets)
	}
}

func TestMutationsOnMissingAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.AddMember(ctx, "nope", "alice", "bob"); !errors.Is(err, household.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := svc.GetSnapshot(ctx, "nope"); !errors.Is(err, household.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
