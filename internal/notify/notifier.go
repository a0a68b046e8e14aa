package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"homevault/internal/eventing"
	"homevault/internal/observability/metrics"
	paymentapp "homevault/internal/payment/application"
)

// Notifier forwards low balance events to a channel. Repeated warnings for
// the same account and asset inside the cooldown window are dropped so a
// run of payments does not spam the household.
type Notifier struct {
	channel  Channel
	logger   *log.Logger
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewNotifier constructs a notifier.
func NewNotifier(channel Channel, cooldown time.Duration, logger *log.Logger) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("notifier: nil channel")
	}
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	return &Notifier{
		channel:  channel,
		logger:   logger,
		cooldown: cooldown,
		now:      time.Now,
		lastSent: make(map[string]time.Time),
	}, nil
}

// Register subscribes the notifier to low balance events.
func (n *Notifier) Register(bus eventing.EventBus) {
	bus.Subscribe(eventing.EventTypeOf[paymentapp.LowBalance](), n.handle)
}

func (n *Notifier) handle(ctx context.Context, event any) error {
	alert, ok := event.(paymentapp.LowBalance)
	if !ok {
		return nil
	}

	key := alert.AccountID + "/" + alert.AssetID
	now := n.now()
	n.mu.Lock()
	if last, seen := n.lastSent[key]; seen && now.Sub(last) < n.cooldown {
		n.mu.Unlock()
		return nil
	}
	n.lastSent[key] = now
	n.mu.Unlock()

	err := n.channel.Send(ctx, Warning{
		AccountID:    alert.AccountID,
		AssetID:      alert.AssetID,
		Remaining:    alert.Remaining,
		RemainingUSD: alert.RemainingUSD,
		ThresholdUSD: alert.ThresholdUSD,
		OccurredAt:   alert.OccurredAt,
	})
	if err != nil {
		metrics.IncNotifyDelivery(metrics.ResultError)
		if n.logger != nil {
			n.logger.Printf("low balance warning delivery failed for %s: %v", key, err)
		}
		// Delivery is best effort, the payment already went through.
		return nil
	}
	metrics.IncNotifyDelivery(metrics.ResultSuccess)
	return nil
}
