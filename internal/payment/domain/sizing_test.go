package payment

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func quote(price string, decimals int32) Quote {
	return Quote{Price: decimal.RequireFromString(price), Decimals: decimals}
}

func TestSelectCheapestFirstWinsOnTie(t *testing.T) {
	candidates := []Candidate{
		{AssetID: "A", Quote: quote("10", 0)},
		{AssetID: "B", Quote: quote("7", 0)},
		{AssetID: "C", Quote: quote("7", 0)},
		{AssetID: "D", Quote: quote("12", 0)},
	}
	index, err := SelectCheapest(candidates)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if index != 1 {
		t.Fatalf("expected index 1 (B), got %d", index)
	}
}

func TestSelectCheapestNormalizesDecimals(t *testing.T) {
	// 5 at 0 decimals is cheaper than 700 at 2 decimals (7 USD).
	candidates := []Candidate{
		{AssetID: "A", Quote: quote("700", 2)},
		{AssetID: "B", Quote: quote("5", 0)},
	}
	index, err := SelectCheapest(candidates)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if index != 1 {
		t.Fatalf("expected index 1, got %d", index)
	}
}

func TestSelectCheapestEmpty(t *testing.T) {
	if _, err := SelectCheapest(nil); !errors.Is(err, ErrEmptyPortfolio) {
		t.Fatalf("expected ErrEmptyPortfolio, got %v", err)
	}
}

func TestSelectCheapestInvalidQuote(t *testing.T) {
	candidates := []Candidate{
		{AssetID: "A", Quote: quote("10", 0)},
		{AssetID: "B", Quote: Quote{Price: decimal.Zero, Decimals: 0}},
	}
	if _, err := SelectCheapest(candidates); !errors.Is(err, ErrInvalidQuote) {
		t.Fatalf("expected ErrInvalidQuote, got %v", err)
	}
}

func TestSourceAmount(t *testing.T) {
	// 50 USDC (6 decimals, price 1 USD) paid from WETH (18 decimals,
	// price 2000 USD): 0.025 WETH = 25e15 base units.
	due := decimal.RequireFromString("50000000")
	settlement := quote("1000000", 6)
	source := quote("2000000000000000000000", 18)

	amount, err := SourceAmount(due, settlement, source)
	if err != nil {
		t.Fatalf("source amount: %v", err)
	}
	want := decimal.RequireFromString("25000000000000000")
	if !amount.Equal(want) {
		t.Fatalf("expected %s, got %s", want, amount)
	}
}

func TestSourceAmountTruncatesTowardZero(t *testing.T) {
	// 10 units at price 3 from an asset at price 7 with 0 decimals:
	// 30/7 = 4.28..., truncated to 4.
	due := decimal.NewFromInt(10)
	settlement := quote("3", 0)
	source := quote("7", 0)

	amount, err := SourceAmount(due, settlement, source)
	if err != nil {
		t.Fatalf("source amount: %v", err)
	}
	if !amount.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected 4, got %s", amount)
	}
}

func TestWithFeeCeiling(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1000", "1003"},
		{"25000000000000000", "25075000000000000"},
		{"1", "1"},
		{"999", "1001"},
	}
	for _, tc := range cases {
		got := WithFeeCeiling(decimal.RequireFromString(tc.in))
		if got.String() != tc.want {
			t.Fatalf("fee ceiling of %s: expected %s, got %s", tc.in, tc.want, got)
		}
	}
}

func TestUSDValue(t *testing.T) {
	// 0.5 WETH at 2000 USD is 1000 USD.
	balance := decimal.RequireFromString("500000000000000000")
	value := USDValue(balance, quote("2000000000000000000000", 18))
	if !value.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected 1000, got %s", value)
	}
}
