package memory

import (
	"context"
	"sync"

	receipts "homevault/internal/receipts/domain"
)

// ReceiptStore is an in-memory receipt store.
type ReceiptStore struct {
	mu   sync.RWMutex
	data map[string][]receipts.Receipt
}

// NewReceiptStore constructs a store.
func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{data: make(map[string][]receipts.Receipt)}
}

// Append stores a receipt.
func (s *ReceiptStore) Append(ctx context.Context, receipt receipts.Receipt) error {
	_ = ctx
	if receipt.ID == "" {
		return receipts.ErrEmptyReceiptID
	}
	if receipt.AccountID == "" {
		return receipts.ErrEmptyAccountID
	}

	s.mu.Lock()
	s.data[receipt.AccountID] = append(s.data[receipt.AccountID], receipt)
	s.mu.Unlock()
	return nil
}

// ListByAccount returns receipts in insertion order.
func (s *ReceiptStore) ListByAccount(ctx context.Context, accountID string) ([]receipts.Receipt, error) {
	_ = ctx
	if accountID == "" {
		return nil, receipts.ErrEmptyAccountID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]receipts.Receipt(nil), s.data[accountID]...), nil
}
