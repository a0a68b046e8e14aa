package notify

import (
	"context"
	"testing"
	"time"

	"homevault/internal/eventing"
	paymentapp "homevault/internal/payment/application"
)

type fakeChannel struct {
	sent []Warning
}

func (c *fakeChannel) Send(ctx context.Context, warning Warning) error {
	c.sent = append(c.sent, warning)
	return nil
}

func TestNotifierForwardsLowBalance(t *testing.T) {
	channel := &fakeChannel{}
	notifier, err := NewNotifier(channel, time.Hour, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	bus := eventing.NewInMemoryBus()
	notifier.Register(bus)

	alert := paymentapp.LowBalance{
		AccountID:    "acc-1",
		AssetID:      "WETH",
		Remaining:    "6000000000000000",
		RemainingUSD: "12",
		ThresholdUSD: "50",
		OccurredAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := bus.Publish(context.Background(), alert); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(channel.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(channel.sent))
	}
	if channel.sent[0].AssetID != "WETH" || channel.sent[0].Remaining != "6000000000000000" || channel.sent[0].RemainingUSD != "12" {
		t.Fatalf("unexpected warning: %+v", channel.sent[0])
	}
}

func TestNotifierCooldownSuppressesRepeats(t *testing.T) {
	channel := &fakeChannel{}
	notifier, err := NewNotifier(channel, time.Hour, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notifier.now = func() time.Time { return current }
	bus := eventing.NewInMemoryBus()
	notifier.Register(bus)

	alert := paymentapp.LowBalance{AccountID: "acc-1", AssetID: "WETH", RemainingUSD: "12", ThresholdUSD: "50"}
	for i := 0; i < 3; i++ {
		if err := bus.Publish(context.Background(), alert); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if len(channel.sent) != 1 {
		t.Fatalf("expected cooldown to suppress repeats, got %d deliveries", len(channel.sent))
	}

	// A different asset is not suppressed.
	other := paymentapp.LowBalance{AccountID: "acc-1", AssetID: "WBTC", RemainingUSD: "8", ThresholdUSD: "50"}
	if err := bus.Publish(context.Background(), other); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(channel.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(channel.sent))
	}

	// After the window passes the same asset alerts again.
	current = current.Add(2 * time.Hour)
	if err := bus.Publish(context.Background(), alert); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(channel.sent) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(channel.sent))
	}
}
