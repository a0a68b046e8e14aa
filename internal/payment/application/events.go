package application

import "time"

// PaymentDone is emitted after a bill has been settled with its provider.
// Amounts are base-unit decimal strings: AmountSpent in the asset that was
// debited, AmountPaid in the settlement asset.
type PaymentDone struct {
	AttemptID   string    `json:"attempt_id"`
	AccountID   string    `json:"account_id"`
	ProviderID  string    `json:"provider_id"`
	AssetUsed   string    `json:"asset_used"`
	AmountSpent string    `json:"amount_spent"`
	AmountPaid  string    `json:"amount_paid"`
	Direct      bool      `json:"direct"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// LowBalance is emitted when the projected value left in the spending
// asset falls under the warning floor. It is a warning, not a veto: the
// payment attempt still proceeds. Remaining is the projected balance in
// the asset's base units, RemainingUSD its valuation at the quote used
// for the warning.
type LowBalance struct {
	AccountID    string    `json:"account_id"`
	AssetID      string    `json:"asset_id"`
	Remaining    string    `json:"remaining"`
	RemainingUSD string    `json:"remaining_usd"`
	ThresholdUSD string    `json:"threshold_usd"`
	OccurredAt   time.Time `json:"occurred_at"`
}
