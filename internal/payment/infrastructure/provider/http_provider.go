package provider

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
)

// Client is the HTTP adapter for one utility provider.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a provider client.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("provider: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// RegisterPayer enrolls the account as a payer. Providers treat repeated
// enrollment of the same account as success.
func (c *Client) RegisterPayer(ctx context.Context, accountID string) error {
	if accountID == "" {
		return errors.New("provider: empty account id")
	}
	body := map[string]any{"account_id": accountID}
	return c.doJSON(ctx, http.MethodPost, "/payers", body, nil)
}

type billResponse struct {
	Amount  string    `json:"amount"`
	DueDate time.Time `json:"due_date"`
}

// DueDate returns the payment deadline of the outstanding bill.
func (c *Client) DueDate(ctx context.Context, accountID string) (time.Time, error) {
	bill, err := c.fetchBill(ctx, accountID)
	if err != nil {
		return time.Time{}, err
	}
	return bill.DueDate, nil
}

// AmountDue returns the outstanding bill amount in settlement base units.
func (c *Client) AmountDue(ctx context.Context, accountID string) (decimal.Decimal, error) {
	bill, err := c.fetchBill(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(bill.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("provider: bad amount %q", bill.Amount)
	}
	return amount, nil
}

// Pay settles the bill with the provider.
func (c *Client) Pay(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if accountID == "" {
		return errors.New("provider: empty account id")
	}
	body := map[string]any{
		"account_id": accountID,
		"amount":     amount.String(),
	}
	return c.doJSON(ctx, http.MethodPost, "/payments", body, nil)
}

func (c *Client) fetchBill(ctx context.Context, accountID string) (billResponse, error) {
	if accountID == "" {
		return billResponse{}, errors.New("provider: empty account id")
	}
	var bill billResponse
	if err := c.doJSON(ctx, http.MethodGet, "/bills/"+accountID, nil, &bill); err != nil {
		return billResponse{}, err
	}
	return bill, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
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
		return fmt.Errorf("provider: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
