package integration_test

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"homevault/internal/eventing"
	eventingrepo "homevault/internal/eventing/infrastructure/postgres"
	householdapp "homevault/internal/household/application"
	householdrepo "homevault/internal/household/infrastructure/postgres"
	paymentapp "homevault/internal/payment/application"
	payment "homevault/internal/payment/domain"
	"homevault/internal/payment/infrastructure/oracle"
	receiptsapp "homevault/internal/receipts/application"
	receiptsrepo "homevault/internal/receipts/infrastructure/postgres"
	receiptshttp "homevault/internal/receipts/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeProvider struct {
	due     decimal.Decimal
	dueDate time.Time
	paid    []decimal.Decimal
}

func (p *fakeProvider) RegisterPayer(ctx context.Context, accountID string) error { return nil }

func (p *fakeProvider) DueDate(ctx context.Context, accountID string) (time.Time, error) {
	return p.dueDate, nil
}

func (p *fakeProvider) AmountDue(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return p.due, nil
}

func (p *fakeProvider) Pay(ctx context.Context, accountID string, amount decimal.Decimal) error {
	p.paid = append(p.paid, amount)
	return nil
}

type fakeExchange struct{ swaps []payment.TradeIntent }

func (e *fakeExchange) Approve(ctx context.Context, assetID string, amount decimal.Decimal) error {
	return nil
}

func (e *fakeExchange) SwapForExactOutput(ctx context.Context, intent payment.TradeIntent) (decimal.Decimal, error) {
	e.swaps = append(e.swaps, intent)
	return intent.AmountInMax, nil
}

func TestPayBill_SwapPathAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := applyMigrations(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	ctx := context.Background()
	accountID := "acc-int-pay"

	_, _ = db.ExecContext(ctx, "DELETE FROM payment_receipts WHERE account_id = $1", accountID)
	_, _ = db.ExecContext(ctx, "DELETE FROM event_outbox")
	_, _ = db.ExecContext(ctx, "DELETE FROM processed_events")
	_, _ = db.ExecContext(ctx, "DELETE FROM dead_letter_events")
	_, _ = db.ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", accountID)

	baseBus := eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(householdapp.MemberAdded{})
	registry.Register(householdapp.CryptoAdded{})
	registry.Register(householdapp.Deposited{})
	registry.Register(paymentapp.PaymentDone{})
	registry.Register(paymentapp.LowBalance{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, registry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, dispatcher, "", baseBus)

	accountRepo := householdrepo.NewAccountRepository(db)
	locks := householdapp.NewAccountLocks()
	service, err := householdapp.NewService(accountRepo, publisher, locks, nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	receiptStore := receiptsrepo.NewReceiptStore(db)
	recorder, err := receiptsapp.NewRecorder(receiptStore, log.New(os.Stderr, "", 0))
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	recorder.Register(baseBus, processedStore)

	if err := service.CreateAccount(ctx, accountID, "alice", "USDC", "feed-usdc"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := service.AddAsset(ctx, accountID, "alice", "WETH", "feed-weth"); err != nil {
		t.Fatalf("add asset: %v", err)
	}
	if err := service.Deposit(ctx, accountID, "alice", "WETH", decimal.NewFromInt(2000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	quotes := oracle.NewStatic(map[string]payment.Quote{
		"feed-usdc": {Price: decimal.NewFromInt(1), Decimals: 0},
		"feed-weth": {Price: decimal.NewFromInt(10), Decimals: 0},
	})
	exchange := &fakeExchange{}
	provider := &fakeProvider{due: decimal.NewFromInt(10000), dueDate: now.Add(48 * time.Hour)}

	engine, err := paymentapp.NewEngine(accountRepo, quotes, exchange, publisher, locks,
		paymentapp.WithClock(fixedClock{now: now}))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	engine.AddProvider("electric-co", provider)
	if err := engine.RegisterUtilities(ctx, accountID, "alice", []string{"electric-co"}); err != nil {
		t.Fatalf("register utilities: %v", err)
	}

	done, err := engine.PayBill(ctx, accountID, "alice", "electric-co")
	if err != nil {
		t.Fatalf("pay bill: %v", err)
	}
	if done.Direct {
		t.Fatal("expected swap path")
	}
	if done.AssetUsed != "WETH" {
		t.Fatalf("asset used %s", done.AssetUsed)
	}
	if len(exchange.swaps) != 1 || exchange.swaps[0].AmountInMax.String() != "1003" {
		t.Fatalf("swap intent mismatch: %+v", exchange.swaps)
	}
	if len(provider.paid) != 1 || provider.paid[0].String() != "10000" {
		t.Fatalf("provider payment mismatch: %+v", provider.paid)
	}

	reloaded, err := accountRepo.FindByID(ctx, accountID)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded == nil {
		t.Fatal("account missing after payment")
	}
	if got := reloaded.Balance("WETH").String(); got != "997" {
		t.Fatalf("weth balance after swap: %s", got)
	}

	persisted, err := receiptStore.ListByAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("list receipts: %v", err)
	}
	if len(persisted) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(persisted))
	}
	if persisted[0].ProviderID != "electric-co" || persisted[0].AmountPaid.String() != "10000" {
		t.Fatalf("receipt mismatch: %+v", persisted[0])
	}

	handler, err := receiptshttp.NewHandler(recorder)
	if err != nil {
		t.Fatalf("receipts handler: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/receipts", handler)
	mux.Handle("/api/v1/receipts/", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/receipts/"+accountID+"/export.pdf", nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("pdf status %d", resp.Code)
	}
	if resp.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf content-type mismatch")
	}
	if len(resp.Body.Bytes()) == 0 {
		t.Fatal("pdf empty")
	}
}

func applyMigrations(db *sql.DB) error {
	root := projectRoot()
	files := []string{
		filepath.Join(root, "migrations", "001_household.sql"),
		filepath.Join(root, "migrations", "002_eventing.sql"),
		filepath.Join(root, "migrations", "003_receipts.sql"),
		filepath.Join(root, "migrations", "004_audit.sql"),
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(content)); err != nil {
			return err
		}
	}
	return nil
}

func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(filepath.Join(dir, "..", "..", ".."))
}
