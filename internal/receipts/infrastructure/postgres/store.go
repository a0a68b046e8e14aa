package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	receipts "homevault/internal/receipts/domain"
)

// ReceiptStore persists receipts in the payment_receipts table.
type ReceiptStore struct {
	db *sql.DB
}

// NewReceiptStore constructs a store.
func NewReceiptStore(db *sql.DB) *ReceiptStore {
	return &ReceiptStore{db: db}
}

// Append inserts a receipt. Re-inserting the same attempt id is a no-op.
func (s *ReceiptStore) Append(ctx context.Context, receipt receipts.Receipt) error {
	if s == nil || s.db == nil {
		return errors.New("receipt store: nil db")
	}
	if receipt.ID == "" {
		return receipts.ErrEmptyReceiptID
	}
	if receipt.AccountID == "" {
		return receipts.ErrEmptyAccountID
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO payment_receipts (id, account_id, provider_id, asset_used, amount_spent, amount_paid, direct, paid_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`,
		receipt.ID,
		receipt.AccountID,
		receipt.ProviderID,
		receipt.AssetUsed,
		receipt.AmountSpent.String(),
		receipt.AmountPaid.String(),
		receipt.Direct,
		receipt.PaidAt.UTC(),
	)
	return err
}

// ListByAccount returns receipts oldest first.
func (s *ReceiptStore) ListByAccount(ctx context.Context, accountID string) ([]receipts.Receipt, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("receipt store: nil db")
	}
	if accountID == "" {
		return nil, receipts.ErrEmptyAccountID
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, provider_id, asset_used, amount_spent, amount_paid, direct, paid_at
FROM payment_receipts
WHERE account_id = $1
ORDER BY paid_at ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []receipts.Receipt
	for rows.Next() {
		receipt := receipts.Receipt{AccountID: accountID}
		var spent, paid string
		if err := rows.Scan(&receipt.ID, &receipt.ProviderID, &receipt.AssetUsed, &spent, &paid, &receipt.Direct, &receipt.PaidAt); err != nil {
			return nil, err
		}
		if receipt.AmountSpent, err = decimal.NewFromString(spent); err != nil {
			return nil, err
		}
		if receipt.AmountPaid, err = decimal.NewFromString(paid); err != nil {
			return nil, err
		}
		result = append(result, receipt)
	}
	return result, rows.Err()
}
