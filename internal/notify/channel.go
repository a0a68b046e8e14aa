package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Warning is a low balance alert delivered to the household.
type Warning struct {
	AccountID    string
	AssetID      string
	Remaining    string
	RemainingUSD string
	ThresholdUSD string
	OccurredAt   time.Time
}

// Channel delivers warnings.
type Channel interface {
	Send(ctx context.Context, warning Warning) error
}

// WebhookChannel sends warnings to a webhook.
type WebhookChannel struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookChannel constructs a channel.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the warning to the webhook.
func (c *WebhookChannel) Send(ctx context.Context, warning Warning) error {
	if c == nil || c.url == "" {
		return errors.New("webhook channel: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatWarning(warning)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
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
		return errors.New("webhook channel: non-2xx")
	}
	return nil
}

func formatWarning(warning Warning) string {
	var b strings.Builder
	b.WriteString("[Low Balance Warning]\n")
	if warning.AccountID != "" {
		fmt.Fprintf(&b, "Account: %s\n", warning.AccountID)
	}
	if warning.AssetID != "" {
		fmt.Fprintf(&b, "Asset: %s\n", warning.AssetID)
	}
	if warning.Remaining != "" {
		fmt.Fprintf(&b, "Remaining: %s\n", warning.Remaining)
	}
	if warning.RemainingUSD != "" {
		fmt.Fprintf(&b, "Remaining (USD): %s\n", warning.RemainingUSD)
	}
	if warning.ThresholdUSD != "" {
		fmt.Fprintf(&b, "Threshold (USD): %s\n", warning.ThresholdUSD)
	}
	if !warning.OccurredAt.IsZero() {
		fmt.Fprintf(&b, "At: %s\n", warning.OccurredAt.Format(time.RFC3339))
	}
	return strings.TrimSpace(b.String())
}
