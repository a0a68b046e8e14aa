package oracle

import (
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

// Client reads price feeds from an HTTP oracle gateway.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs an oracle client.
func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("oracle: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type quoteResponse struct {
	Price    string `json:"price"`
	Decimals int32  `json:"decimals"`
}

// LatestPrice fetches the latest reading for a feed.
func (c *Client) LatestPrice(ctx context.Context, feedID string) (payment.Quote, error) {
	if feedID == "" {
		return payment.Quote{}, errors.New("oracle: empty feed id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/feeds/"+feedID+"/latest", nil)
	if err != nil {
		return payment.Quote{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return payment.Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return payment.Quote{}, fmt.Errorf("oracle: http %d for feed %s", resp.StatusCode, feedID)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return payment.Quote{}, err
	}
	price, err := decimal.NewFromString(body.Price)
	if err != nil {
		return payment.Quote{}, payment.ErrInvalidQuote
	}
	quote := payment.Quote{Price: price, Decimals: body.Decimals}
	if err := quote.Validate(); err != nil {
		return payment.Quote{}, err
	}
	return quote, nil
}
