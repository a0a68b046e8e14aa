package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"homevault/internal/eventing"
	household "homevault/internal/household/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service handles guarded household account mutations.
// Every mutation emits a change record on the event bus.
type Service struct {
	repo  household.Repository
	bus   eventing.EventBus
	locks *AccountLocks
	clock Clock
}

// NewService constructs the service.
func NewService(repo household.Repository, bus eventing.EventBus, locks *AccountLocks, clock Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("household service: nil repository")
	}
	if locks == nil {
		locks = NewAccountLocks()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{repo: repo, bus: bus, locks: locks, clock: clock}, nil
}

// Locks exposes the per-account lock registry shared with the payment engine.
func (s *Service) Locks() *AccountLocks { return s.locks }

// CreateAccount initializes a household account with its owner and
// settlement configuration.
func (s *Service) CreateAccount(ctx context.Context, id, owner, settlementAsset, settlementFeed string) error {
	release := s.locks.Lock(id)
	defer release()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return household.ErrAccountExists
	}
	account, err := household.NewAccount(id, owner, settlementAsset, settlementFeed)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, account)
}

// AddMember adds a principal on behalf of an existing member.
func (s *Service) AddMember(ctx context.Context, accountID, caller, principal string) error {
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		if err := account.AddMember(caller, principal); err != nil {
			return nil, err
		}
		return MemberAdded{AccountID: accountID, Principal: principal, Actor: caller, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// RemoveMember removes a principal on behalf of a trusted member.
func (s *Service) RemoveMember(ctx context.Context, accountID, caller, principal string) error {
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		if err := account.RemoveMember(caller, principal); err != nil {
			return nil, err
		}
		return MemberRemoved{AccountID: accountID, Principal: principal, Actor: caller, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// GrantRole grants a recognized role; owner only.
func (s *Service) GrantRole(ctx context.Context, accountID, caller, principal, role string) error {
	normalized, ok := household.NormalizeRole(role)
	if !ok {
		return household.ErrUnknownRole
	}
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		if err := account.GrantRole(caller, principal, normalized); err != nil {
			return nil, err
		}
		return RoleGranted{AccountID: accountID, Principal: principal, Role: role, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// RevokeRole revokes a recognized role; owner only.
func (s *Service) RevokeRole(ctx context.Context, accountID, caller, principal, role string) error {
	normalized, ok := household.NormalizeRole(role)
	if !ok {
		return household.ErrUnknownRole
	}
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		if err := account.RevokeRole(caller, principal, normalized); err != nil {
			return nil, err
		}
		return RoleRevoked{AccountID: accountID, Principal: principal, Role: role, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// AddAsset registers a portfolio asset; operators only.
func (s *Service) AddAsset(ctx context.Context, accountID, caller, assetID, priceFeedID string) error {
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		if err := account.AddAsset(caller, assetID, priceFeedID); err != nil {
			return nil, err
		}
		return CryptoAdded{AccountID: accountID, AssetID: assetID, PriceFeedID: priceFeedID, Actor: caller, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// RemoveAsset removes the portfolio entry at index; operators only.
func (s *Service) RemoveAsset(ctx context.Context, accountID, caller string, index int) error {
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		entries := account.Portfolio()
		if err := account.RemoveAsset(caller, index); err != nil {
			return nil, err
		}
		return CryptoRemoved{AccountID: accountID, AssetID: entries[index].AssetID, Actor: caller, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// SetSettlement switches the settlement asset; owner only.
func (s *Service) SetSettlement(ctx context.Context, accountID, caller, assetID, priceFeedID string) error {
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		if err := account.SetSettlement(caller, assetID, priceFeedID); err != nil {
			return nil, err
		}
		return SettlementChanged{AccountID: accountID, AssetID: assetID, PriceFeedID: priceFeedID, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// Deposit credits the treasury from an external top-up; operators only.
func (s *Service) Deposit(ctx context.Context, accountID, caller, assetID string, amount decimal.Decimal) error {
	return s.mutate(ctx, accountID, func(account *household.Account) (any, error) {
		if !account.HasRole(caller, household.RoleOperator) {
			return nil, household.ErrNotAuthorized
		}
		if err := account.Credit(assetID, amount); err != nil {
			return nil, err
		}
		return Deposited{AccountID: accountID, AssetID: assetID, Amount: amount.String(), Actor: caller, OccurredAt: s.clock.Now().UTC()}, nil
	})
}

// ListAssets returns the portfolio entries; no access restriction.
func (s *Service) ListAssets(ctx context.Context, accountID string) ([]household.PortfolioEntry, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Portfolio(), nil
}

// Snapshot is a read model of the account state.
type Snapshot struct {
	AccountID       string
	Owner           string
	Members         []string
	Portfolio       []household.PortfolioEntry
	SettlementAsset string
	SettlementFeed  string
	Balances        map[string]string
}

// GetSnapshot returns a read-only view of the account.
func (s *Service) GetSnapshot(ctx context.Context, accountID string) (*Snapshot, error) {
	account, err := s.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]string)
	for asset, balance := range account.Balances() {
		balances[asset] = balance.String()
	}
	settlementAsset, settlementFeed := account.Settlement()
	return &Snapshot{
		AccountID:       account.ID(),
		Owner:           account.Owner(),
		Members:         account.Members(),
		Portfolio:       account.Portfolio(),
		SettlementAsset: settlementAsset,
		SettlementFeed:  settlementFeed,
		Balances:        balances,
	}, nil
}

func (s *Service) load(ctx context.Context, accountID string) (*household.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, household.ErrAccountNotFound
	}
	return account, nil
}

func (s *Service) mutate(ctx context.Context, accountID string, op func(*household.Account) (any, error)) error {
	release := s.locks.Lock(accountID)
	defer release()

	account, err := s.load(ctx, accountID)
	if err != nil {
		return err
	}
	event, err := op(account)
	if err != nil {
		return err
	}
	if err := s.repo.Save(ctx, account); err != nil {
		return err
	}
	if s.bus != nil && event != nil {
		ctx = eventing.WithAccountID(ctx, accountID)
		if err := s.bus.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
