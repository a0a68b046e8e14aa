package household

import "context"

// Repository loads and persists household accounts.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	Save(ctx context.Context, account *Account) error
}
