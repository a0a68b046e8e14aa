package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the durable record of one settled bill.
type Receipt struct {
	ID          string
	AccountID   string
	ProviderID  string
	AssetUsed   string
	AmountSpent decimal.Decimal
	AmountPaid  decimal.Decimal
	Direct      bool
	PaidAt      time.Time
}

// ErrEmptyAccountID is returned for lookups without an account id.
var ErrEmptyAccountID = errors.New("receipts: empty account id")

// ErrEmptyReceiptID is returned when a receipt carries no id.
var ErrEmptyReceiptID = errors.New("receipts: empty receipt id")

// Store persists receipts.
type Store interface {
	Append(ctx context.Context, receipt Receipt) error
	ListByAccount(ctx context.Context, accountID string) ([]Receipt, error)
}
