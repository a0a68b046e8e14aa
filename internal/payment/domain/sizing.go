package payment

import "github.com/shopspring/decimal"

// divPrecision bounds intermediate division results. Base-unit amounts for
// 18-decimal assets need far more digits than the package default of 16.
const divPrecision = 38

// LowBalanceThresholdUSD is the default warning floor for the projected
// value left in a source asset after a payment.
var LowBalanceThresholdUSD = decimal.NewFromInt(50)

// feeNumerator / feeDenominator encode the 0.3% swap fee margin.
var (
	feeNumerator   = decimal.NewFromInt(1003)
	feeDenominator = decimal.NewFromInt(1000)
)

// Candidate pairs a portfolio asset with its current quote.
type Candidate struct {
	AssetID string
	Quote   Quote
}

// SelectCheapest returns the index of the candidate with the strictly
// lowest normalized USD price. Earlier entries win ties, so the scan is
// stable with respect to portfolio order.
func SelectCheapest(candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return -1, ErrEmptyPortfolio
	}
	best := -1
	var bestPrice decimal.Decimal
	for i, candidate := range candidates {
		if err := candidate.Quote.Validate(); err != nil {
			return -1, err
		}
		price := candidate.Quote.USDPrice()
		if best == -1 || price.LessThan(bestPrice) {
			best = i
			bestPrice = price
		}
	}
	return best, nil
}

// SourceAmount converts a bill amount in settlement base units into the
// equivalent base units of the source asset, valuing both through USD.
// The result is truncated toward zero.
func SourceAmount(due decimal.Decimal, settlement, source Quote) (decimal.Decimal, error) {
	if err := settlement.Validate(); err != nil {
		return decimal.Zero, err
	}
	if err := source.Validate(); err != nil {
		return decimal.Zero, err
	}
	usd := due.Shift(-settlement.Decimals).Mul(settlement.USDPrice())
	tokens := usd.DivRound(source.USDPrice(), divPrecision)
	return tokens.Shift(source.Decimals).Truncate(0), nil
}

// WithFeeCeiling applies the swap fee margin to a base-unit amount,
// truncating toward zero.
func WithFeeCeiling(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(feeNumerator).DivRound(feeDenominator, divPrecision).Truncate(0)
}

// USDValue values a base-unit balance at the quote, in whole US dollars.
func USDValue(balance decimal.Decimal, quote Quote) decimal.Decimal {
	return balance.Shift(-quote.Decimals).Mul(quote.USDPrice())
}
