package memory

import (
	"context"
	"sync"

	household "homevault/internal/household/domain"
)

// AccountRepository is an in-memory repository for household accounts.
type AccountRepository struct {
	mu   sync.RWMutex
	data map[string]*household.Account
}

// NewAccountRepository constructs a repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{data: make(map[string]*household.Account)}
}

// FindByID loads an account by id.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*household.Account, error) {
	_ = ctx
	if id == "" {
		return nil, household.ErrEmptyAccountID
	}

	r.mu.RLock()
	account := r.data[id]
	r.mu.RUnlock()
	if account == nil {
		return nil, nil
	}
	return account.Clone(), nil
}

// Save persists an account (overwrites existing).
func (r *AccountRepository) Save(ctx context.Context, account *household.Account) error {
	_ = ctx
	if account == nil {
		return household.ErrNilAccount
	}
	if account.ID() == "" {
		return household.ErrEmptyAccountID
	}

	clone := account.Clone()
	r.mu.Lock()
	r.data[account.ID()] = clone
	r.mu.Unlock()

	account.MarkPersisted()
	return nil
}
