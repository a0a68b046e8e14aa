package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"homevault/internal/eventing"
	"homevault/internal/household/application"
	household "homevault/internal/household/domain"
	"homevault/internal/observability/metrics"
	payment "homevault/internal/payment/domain"
)

// UtilityProvider is the billing side of a utility company.
type UtilityProvider interface {
	RegisterPayer(ctx context.Context, accountID string) error
	DueDate(ctx context.Context, accountID string) (time.Time, error)
	AmountDue(ctx context.Context, accountID string) (decimal.Decimal, error)
	Pay(ctx context.Context, accountID string, amount decimal.Decimal) error
}

// PriceOracle returns the latest reading for a price feed.
type PriceOracle interface {
	LatestPrice(ctx context.Context, feedID string) (payment.Quote, error)
}

// Exchange executes asset conversions.
type Exchange interface {
	Approve(ctx context.Context, assetID string, amount decimal.Decimal) error
	SwapForExactOutput(ctx context.Context, intent payment.TradeIntent) (decimal.Decimal, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Engine runs the bill payment state machine. A payment attempt either
// spends the settlement asset directly or liquidates the cheapest priced
// portfolio asset through the exchange, then settles with the provider.
type Engine struct {
	repo      household.Repository
	oracle    PriceOracle
	exchange  Exchange
	bus       eventing.EventBus
	locks     *application.AccountLocks
	clock     Clock
	threshold decimal.Decimal
	deadline  time.Duration

	mu         sync.Mutex
	providers  map[string]UtilityProvider
	registered map[string]map[string]struct{}
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLowBalanceThreshold overrides the USD warning floor.
func WithLowBalanceThreshold(threshold decimal.Decimal) Option {
	return func(e *Engine) {
		if threshold.Sign() > 0 {
			e.threshold = threshold
		}
	}
}

// WithSwapDeadline overrides the validity window handed to the exchange.
func WithSwapDeadline(deadline time.Duration) Option {
	return func(e *Engine) {
		if deadline > 0 {
			e.deadline = deadline
		}
	}
}

// NewEngine constructs the payment engine.
func NewEngine(repo household.Repository, oracle PriceOracle, exchange Exchange, bus eventing.EventBus, locks *application.AccountLocks, opts ...Option) (*Engine, error) {
	if repo == nil {
		return nil, errors.New("payment engine: nil repository")
	}
	if oracle == nil {
		return nil, errors.New("payment engine: nil oracle")
	}
	if exchange == nil {
		return nil, errors.New("payment engine: nil exchange")
	}
	if locks == nil {
		locks = application.NewAccountLocks()
	}
	engine := &Engine{
		repo:       repo,
		oracle:     oracle,
		exchange:   exchange,
		bus:        bus,
		locks:      locks,
		clock:      systemClock{},
		threshold:  payment.LowBalanceThresholdUSD,
		deadline:   24 * time.Hour,
		providers:  make(map[string]UtilityProvider),
		registered: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// AddProvider makes a utility provider available for registration.
func (e *Engine) AddProvider(providerID string, provider UtilityProvider) {
	if providerID == "" || provider == nil {
		return
	}
	e.mu.Lock()
	e.providers[providerID] = provider
	e.mu.Unlock()
}

// RegisterUtilities registers the account as payer with each provider.
// Every invocation passes through to the provider and reports its result,
// idempotency is the provider's concern. Operators only.
func (e *Engine) RegisterUtilities(ctx context.Context, accountID, caller string, providerIDs []string) error {
	if e == nil {
		return payment.ErrNilEngine
	}
	account, err := e.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return household.ErrAccountNotFound
	}
	if !account.HasRole(caller, household.RoleOperator) {
		return household.ErrNotAuthorized
	}

	for _, providerID := range providerIDs {
		e.mu.Lock()
		provider, ok := e.providers[providerID]
		e.mu.Unlock()
		if !ok {
			return payment.ErrUnknownProvider
		}
		if err := provider.RegisterPayer(ctx, accountID); err != nil {
			return err
		}
		e.mu.Lock()
		set := e.registered[accountID]
		if set == nil {
			set = make(map[string]struct{})
			e.registered[accountID] = set
		}
		set[providerID] = struct{}{}
		e.mu.Unlock()
	}
	return nil
}

// RegisteredProviders returns the provider ids the account registered with
// through this process. The list is informational, it does not gate payments.
func (e *Engine) RegisteredProviders(accountID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := e.registered[accountID]
	result := make([]string, 0, len(set))
	for providerID := range set {
		result = append(result, providerID)
	}
	return result
}

// PayBill settles the provider's outstanding bill from the account
// treasury on behalf of the caller, who must hold the account's operator
// role. The due date gates the attempt: once it has passed the bill can
// no longer be paid through this engine.
func (e *Engine) PayBill(ctx context.Context, accountID, caller, providerID string) (*PaymentDone, error) {
	if e == nil {
		return nil, payment.ErrNilEngine
	}
	start := e.clock.Now()
	done, mode, err := e.payBill(ctx, accountID, caller, providerID)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObservePayment(mode, result, e.clock.Now().Sub(start))
	return done, err
}

func (e *Engine) payBill(ctx context.Context, accountID, caller, providerID string) (*PaymentDone, string, error) {
	release := e.locks.Lock(accountID)
	defer release()

	provider, err := e.lookupProvider(providerID)
	if err != nil {
		return nil, metrics.PaymentModeDirect, err
	}

	account, err := e.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, metrics.PaymentModeDirect, err
	}
	if account == nil {
		return nil, metrics.PaymentModeDirect, household.ErrAccountNotFound
	}
	if !account.HasRole(caller, household.RoleOperator) {
		return nil, metrics.PaymentModeDirect, household.ErrNotAuthorized
	}

	now := e.clock.Now()
	dueDate, err := provider.DueDate(ctx, accountID)
	if err != nil {
		return nil, metrics.PaymentModeDirect, err
	}
	if now.After(dueDate) {
		return nil, metrics.PaymentModeDirect, payment.ErrPastDue
	}

	due, err := provider.AmountDue(ctx, accountID)
	if err != nil {
		return nil, metrics.PaymentModeDirect, err
	}
	if due.Sign() <= 0 {
		return nil, metrics.PaymentModeDirect, payment.ErrNoBill
	}

	settlementAsset, settlementFeed := account.Settlement()
	if account.Balance(settlementAsset).GreaterThanOrEqual(due) {
		done, err := e.payDirect(ctx, account, provider, providerID, settlementAsset, settlementFeed, due, now)
		return done, metrics.PaymentModeDirect, err
	}
	done, err := e.payBySwap(ctx, account, provider, providerID, settlementAsset, settlementFeed, due, now)
	return done, metrics.PaymentModeSwap, err
}

func (e *Engine) lookupProvider(providerID string) (UtilityProvider, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	provider, ok := e.providers[providerID]
	if !ok {
		return nil, payment.ErrUnknownProvider
	}
	return provider, nil
}

func (e *Engine) payDirect(ctx context.Context, account *household.Account, provider UtilityProvider, providerID, settlementAsset, settlementFeed string, due decimal.Decimal, now time.Time) (*PaymentDone, error) {
	// The direct path is a balance compare plus transfer. The oracle only
	// serves the low balance warning here, so a dead feed must not block
	// an otherwise funded payment.
	quote, quoteErr := e.oracle.LatestPrice(ctx, settlementFeed)
	if quoteErr == nil {
		remaining := account.Balance(settlementAsset).Sub(due)
		if err := e.warnIfLowValued(ctx, account.ID(), settlementAsset, remaining, quote, now); err != nil {
			return nil, err
		}
	}

	if err := account.Debit(settlementAsset, due); err != nil {
		return nil, err
	}
	if err := provider.Pay(ctx, account.ID(), due); err != nil {
		return nil, err
	}
	if err := e.repo.Save(ctx, account); err != nil {
		return nil, err
	}

	done := &PaymentDone{
		AttemptID:   uuid.NewString(),
		AccountID:   account.ID(),
		ProviderID:  providerID,
		AssetUsed:   settlementAsset,
		AmountSpent: due.String(),
		AmountPaid:  due.String(),
		Direct:      true,
		OccurredAt:  now.UTC(),
	}
	if quoteErr == nil {
		usd, _ := payment.USDValue(due, quote).Float64()
		metrics.AddPaymentVolume(providerID, usd)
	}
	return done, e.publish(ctx, account.ID(), *done)
}

func (e *Engine) payBySwap(ctx context.Context, account *household.Account, provider UtilityProvider, providerID, settlementAsset, settlementFeed string, due decimal.Decimal, now time.Time) (*PaymentDone, error) {
	var candidates []payment.Candidate
	for _, entry := range account.Portfolio() {
		if entry.AssetID == settlementAsset {
			continue
		}
		quote, err := e.oracle.LatestPrice(ctx, entry.PriceFeedID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, payment.Candidate{AssetID: entry.AssetID, Quote: quote})
	}
	if len(candidates) == 0 {
		return nil, payment.ErrInsufficientBalance
	}

	index, err := payment.SelectCheapest(candidates)
	if err != nil {
		return nil, err
	}
	source := candidates[index]

	settlementQuote, err := e.oracle.LatestPrice(ctx, settlementFeed)
	if err != nil {
		return nil, err
	}

	raw, err := payment.SourceAmount(due, settlementQuote, source.Quote)
	if err != nil {
		return nil, err
	}
	amountInMax := payment.WithFeeCeiling(raw)

	balance := account.Balance(source.AssetID)
	if balance.LessThan(amountInMax) {
		return nil, payment.ErrInsufficientBalance
	}

	remaining := balance.Sub(amountInMax)
	if err := e.warnIfLowValued(ctx, account.ID(), source.AssetID, remaining, source.Quote, now); err != nil {
		return nil, err
	}

	if err := e.exchange.Approve(ctx, source.AssetID, amountInMax); err != nil {
		return nil, err
	}
	spent, err := e.exchange.SwapForExactOutput(ctx, payment.TradeIntent{
		AssetIn:     source.AssetID,
		AssetOut:    settlementAsset,
		AmountInMax: amountInMax,
		AmountOut:   due,
		Deadline:    now.Add(e.deadline),
	})
	if err != nil {
		return nil, err
	}

	if err := account.Debit(source.AssetID, spent); err != nil {
		return nil, err
	}
	if err := provider.Pay(ctx, account.ID(), due); err != nil {
		return nil, err
	}
	if err := e.repo.Save(ctx, account); err != nil {
		return nil, err
	}

	done := &PaymentDone{
		AttemptID:   uuid.NewString(),
		AccountID:   account.ID(),
		ProviderID:  providerID,
		AssetUsed:   source.AssetID,
		AmountSpent: spent.String(),
		AmountPaid:  due.String(),
		Direct:      false,
		OccurredAt:  now.UTC(),
	}
	usd, _ := payment.USDValue(due, settlementQuote).Float64()
	metrics.AddPaymentVolume(providerID, usd)
	return done, e.publish(ctx, account.ID(), *done)
}

func (e *Engine) warnIfLowValued(ctx context.Context, accountID, assetID string, remaining decimal.Decimal, quote payment.Quote, now time.Time) error {
	value := payment.USDValue(remaining, quote)
	if value.GreaterThanOrEqual(e.threshold) {
		return nil
	}
	metrics.IncLowBalanceAlert()
	return e.publish(ctx, accountID, LowBalance{
		AccountID:    accountID,
		AssetID:      assetID,
		Remaining:    remaining.String(),
		RemainingUSD: value.String(),
		ThresholdUSD: e.threshold.String(),
		OccurredAt:   now.UTC(),
	})
}

func (e *Engine) publish(ctx context.Context, accountID string, event any) error {
	if e.bus == nil {
		return nil
	}
	return e.bus.Publish(eventing.WithAccountID(ctx, accountID), event)
}
