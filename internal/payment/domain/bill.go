package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill is an amount owed to a utility provider, denominated in base units
// of the account's settlement asset.
type Bill struct {
	ProviderID string
	Amount     decimal.Decimal
	DueDate    time.Time
}

// Quote is a price feed reading. Price is a fixed-point integer with
// Decimals fractional digits; the same scale applies to the base units of
// the asset the feed prices.
type Quote struct {
	Price    decimal.Decimal
	Decimals int32
}

// Validate rejects unusable quotes.
func (q Quote) Validate() error {
	if q.Price.Sign() <= 0 {
		return ErrInvalidQuote
	}
	if q.Decimals < 0 {
		return ErrInvalidQuote
	}
	return nil
}

// USDPrice returns the quote normalized to whole US dollars.
func (q Quote) USDPrice() decimal.Decimal {
	return q.Price.Shift(-q.Decimals)
}

// TradeIntent is a swap order handed to the exchange: spend at most
// AmountInMax of AssetIn to obtain exactly AmountOut of AssetOut.
type TradeIntent struct {
	AssetIn     string
	AssetOut    string
	AmountInMax decimal.Decimal
	AmountOut   decimal.Decimal
	Deadline    time.Time
}
