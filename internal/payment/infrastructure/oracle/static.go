package oracle

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	payment "homevault/internal/payment/domain"
)

// ErrUnknownFeed is returned for feeds the static oracle does not carry.
var ErrUnknownFeed = errors.New("oracle: unknown feed")

// Static serves pinned quotes from configuration. Used for local runs and
// as the fallback when no oracle endpoint is configured.
type Static struct {
	quotes map[string]payment.Quote
}

// NewStatic constructs a static oracle from feed id to quote.
func NewStatic(quotes map[string]payment.Quote) *Static {
	copied := make(map[string]payment.Quote, len(quotes))
	for feedID, quote := range quotes {
		copied[feedID] = quote
	}
	return &Static{quotes: copied}
}

// ParseQuote builds a quote from a string price, as read from config.
func ParseQuote(price string, decimals int32) (payment.Quote, error) {
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return payment.Quote{}, payment.ErrInvalidQuote
	}
	quote := payment.Quote{Price: parsed, Decimals: decimals}
	if err := quote.Validate(); err != nil {
		return payment.Quote{}, err
	}
	return quote, nil
}

// LatestPrice returns the pinned quote for a feed.
func (s *Static) LatestPrice(ctx context.Context, feedID string) (payment.Quote, error) {
	_ = ctx
	quote, ok := s.quotes[feedID]
	if !ok {
		return payment.Quote{}, ErrUnknownFeed
	}
	if err := quote.Validate(); err != nil {
		return payment.Quote{}, err
	}
	return quote, nil
}
