package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	payment "homevault/internal/payment/domain"
)

// Client talks to an HTTP swap venue.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs an exchange client.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("exchange: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Approve authorizes the venue to spend up to amount of the asset.
func (c *Client) Approve(ctx context.Context, assetID string, amount decimal.Decimal) error {
	if assetID == "" {
		return errors.New("exchange: empty asset id")
	}
	body := map[string]any{
		"asset_id": assetID,
		"amount":   amount.String(),
	}
	return c.doJSON(ctx, "/approvals", body, nil)
}

type swapResponse struct {
	AmountIn string `json:"amount_in"`
}

// SwapForExactOutput executes the trade and returns the amount actually
// spent, which is at most the intent's AmountInMax.
func (c *Client) SwapForExactOutput(ctx context.Context, intent payment.TradeIntent) (decimal.Decimal, error) {
	body := map[string]any{
		"asset_in":      intent.AssetIn,
		"asset_out":     intent.AssetOut,
		"amount_in_max": intent.AmountInMax.String(),
		"amount_out":    intent.AmountOut.String(),
		"deadline":      intent.Deadline.UTC().Format(time.RFC3339),
	}
	var resp swapResponse
	if err := c.doJSON(ctx, "/swaps", body, &resp); err != nil {
		return decimal.Zero, err
	}
	spent, err := decimal.NewFromString(resp.AmountIn)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchange: bad amount_in %q", resp.AmountIn)
	}
	return spent, nil
}

func (c *Client) doJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("exchange: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
