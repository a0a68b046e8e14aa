package application

import "time"

// MemberAdded is emitted when a principal joins the account.
type MemberAdded struct {
	AccountID  string    `json:"account_id"`
	Principal  string    `json:"principal"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MemberRemoved is emitted when a principal is removed from the account.
type MemberRemoved struct {
	AccountID  string    `json:"account_id"`
	Principal  string    `json:"principal"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoleGranted is emitted when the owner grants a role.
type RoleGranted struct {
	AccountID  string    `json:"account_id"`
	Principal  string    `json:"principal"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoleRevoked is emitted when the owner revokes a role.
type RoleRevoked struct {
	AccountID  string    `json:"account_id"`
	Principal  string    `json:"principal"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CryptoAdded is emitted when an asset is registered in the portfolio.
type CryptoAdded struct {
	AccountID   string    `json:"account_id"`
	AssetID     string    `json:"asset_id"`
	PriceFeedID string    `json:"price_feed_id"`
	Actor       string    `json:"actor"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// CryptoRemoved is emitted when an asset is removed from the portfolio.
type CryptoRemoved struct {
	AccountID  string    `json:"account_id"`
	AssetID    string    `json:"asset_id"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SettlementChanged is emitted when the owner switches the settlement asset.
type SettlementChanged struct {
	AccountID   string    `json:"account_id"`
	AssetID     string    `json:"asset_id"`
	PriceFeedID string    `json:"price_feed_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Deposited is emitted when the treasury is topped up externally.
type Deposited struct {
	AccountID  string    `json:"account_id"`
	AssetID    string    `json:"asset_id"`
	Amount     string    `json:"amount"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}
