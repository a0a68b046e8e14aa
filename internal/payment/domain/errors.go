package payment

import "errors"

var (
	// ErrPastDue indicates the bill's payment window has already closed.
	ErrPastDue = errors.New("payment: bill past due")
	// ErrNoBill indicates the provider reported nothing owed.
	ErrNoBill = errors.New("payment: no amount due")
	// ErrInvalidQuote indicates a price feed returned a non-positive price.
	ErrInvalidQuote = errors.New("payment: invalid price quote")
	// ErrEmptyPortfolio indicates the account holds no liquidatable assets.
	ErrEmptyPortfolio = errors.New("payment: empty portfolio")
	// ErrInsufficientBalance indicates the chosen asset cannot cover the bill.
	ErrInsufficientBalance = errors.New("payment: insufficient balance")
	// ErrUnknownProvider indicates the utility provider is not registered.
	ErrUnknownProvider = errors.New("payment: unknown provider")
	// ErrNilEngine indicates the engine was not constructed.
	ErrNilEngine = errors.New("payment: nil engine")
)
