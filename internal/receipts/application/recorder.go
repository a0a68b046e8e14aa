package application

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"

	"homevault/internal/eventing"
	paymentapp "homevault/internal/payment/application"
	receipts "homevault/internal/receipts/domain"
)

// ConsumerName identifies this consumer in the processed-events table.
const ConsumerName = "receipts-recorder"

// Recorder turns settled payments into receipts.
type Recorder struct {
	store  receipts.Store
	logger *log.Logger
}

// NewRecorder constructs a recorder.
func NewRecorder(store receipts.Store, logger *log.Logger) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("receipts recorder: nil store")
	}
	return &Recorder{store: store, logger: logger}, nil
}

// Register subscribes the recorder to payment completions. The processed
// store makes redelivery after an outbox retry a no-op.
func (r *Recorder) Register(bus eventing.EventBus, processed eventing.ProcessedStore) {
	eventing.Subscribe(bus, eventing.EventTypeOf[paymentapp.PaymentDone](), ConsumerName, r.handle, processed)
}

func (r *Recorder) handle(ctx context.Context, event any) error {
	done, ok := event.(paymentapp.PaymentDone)
	if !ok {
		if p, isPtr := event.(*paymentapp.PaymentDone); isPtr && p != nil {
			done = *p
		} else {
			return nil
		}
	}

	spent, err := decimal.NewFromString(done.AmountSpent)
	if err != nil {
		return err
	}
	paid, err := decimal.NewFromString(done.AmountPaid)
	if err != nil {
		return err
	}

	receipt := receipts.Receipt{
		ID:          done.AttemptID,
		AccountID:   done.AccountID,
		ProviderID:  done.ProviderID,
		AssetUsed:   done.AssetUsed,
		AmountSpent: spent,
		AmountPaid:  paid,
		Direct:      done.Direct,
		PaidAt:      done.OccurredAt,
	}
	if err := r.store.Append(ctx, receipt); err != nil {
		if r.logger != nil {
			r.logger.Printf("receipt append failed for attempt %s: %v", done.AttemptID, err)
		}
		return err
	}
	return nil
}

// List returns all receipts for an account, oldest first.
func (r *Recorder) List(ctx context.Context, accountID string) ([]receipts.Receipt, error) {
	return r.store.ListByAccount(ctx, accountID)
}
