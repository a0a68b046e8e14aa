package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	apihttp "homevault/internal/api/http"
	"homevault/internal/audit"
	"homevault/internal/auth"
	"homevault/internal/eventing"
	eventingrepo "homevault/internal/eventing/infrastructure/postgres"
	householdapp "homevault/internal/household/application"
	householdrepo "homevault/internal/household/infrastructure/postgres"
	householdhttp "homevault/internal/household/interfaces/http"
	"homevault/internal/notify"
	"homevault/internal/observability/metrics"
	paymentapp "homevault/internal/payment/application"
	payment "homevault/internal/payment/domain"
	"homevault/internal/payment/infrastructure/exchange"
	"homevault/internal/payment/infrastructure/oracle"
	"homevault/internal/payment/infrastructure/provider"
	paymenthttp "homevault/internal/payment/interfaces/http"
	receiptsapp "homevault/internal/receipts/application"
	receiptsrepo "homevault/internal/receipts/infrastructure/postgres"
	receiptshttp "homevault/internal/receipts/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	baseBus := eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(householdapp.MemberAdded{})
	registry.Register(householdapp.MemberRemoved{})
	registry.Register(householdapp.RoleGranted{})
	registry.Register(householdapp.RoleRevoked{})
	registry.Register(householdapp.CryptoAdded{})
	registry.Register(householdapp.CryptoRemoved{})
	registry.Register(householdapp.SettlementChanged{})
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
	householdService, err := householdapp.NewService(accountRepo, publisher, locks, nil)
	if err != nil {
		logger.Fatalf("household service error: %v", err)
	}

	paymentCfg, err := paymentapp.LoadConfig()
	if err != nil {
		logger.Fatalf("payment config error: %v", err)
	}
	priceOracle, err := buildOracle(paymentCfg.Oracle)
	if err != nil {
		logger.Fatalf("oracle error: %v", err)
	}
	if paymentCfg.Exchange.BaseURL == "" {
		logger.Fatalf("PAYMENT_EXCHANGE_URL is required")
	}
	exchangeClient, err := exchange.NewClient(paymentCfg.Exchange.BaseURL)
	if err != nil {
		logger.Fatalf("exchange client error: %v", err)
	}

	engine, err := paymentapp.NewEngine(
		accountRepo,
		priceOracle,
		exchangeClient,
		publisher,
		locks,
		paymentapp.WithLowBalanceThreshold(decimal.NewFromInt(paymentCfg.LowBalanceUSD)),
		paymentapp.WithSwapDeadline(paymentCfg.SwapDeadline),
	)
	if err != nil {
		logger.Fatalf("payment engine error: %v", err)
	}
	for _, providerCfg := range paymentCfg.Providers {
		client, err := provider.NewClient(providerCfg.BaseURL)
		if err != nil {
			logger.Fatalf("provider %s error: %v", providerCfg.ID, err)
		}
		engine.AddProvider(providerCfg.ID, client)
	}

	receiptStore := receiptsrepo.NewReceiptStore(db)
	recorder, err := receiptsapp.NewRecorder(receiptStore, logger)
	if err != nil {
		logger.Fatalf("receipts recorder error: %v", err)
	}
	recorder.Register(baseBus, processedStore)

	if cfg.LowBalanceWebhookURL != "" {
		channel := notify.NewWebhookChannel(cfg.LowBalanceWebhookURL)
		notifier, err := notify.NewNotifier(channel, cfg.NotifyCooldown, logger)
		if err != nil {
			logger.Fatalf("notifier error: %v", err)
		}
		notifier.Register(baseBus)
	}

	// Retry loop for outbox records whose first dispatch failed.
	go func() {
		ticker := time.NewTicker(cfg.OutboxInterval)
		defer ticker.Stop()
		for range ticker.C {
			if err := dispatcher.Dispatch(context.Background(), 50); err != nil {
				logger.Printf("outbox dispatch error: %v", err)
			}
		}
	}()

	householdHandler, err := householdhttp.NewHandler(householdService, auditRepo)
	if err != nil {
		logger.Fatalf("household handler error: %v", err)
	}
	paymentHandler, err := paymenthttp.NewHandler(engine, auditRepo)
	if err != nil {
		logger.Fatalf("payment handler error: %v", err)
	}
	receiptsHandler, err := receiptshttp.NewHandler(recorder)
	if err != nil {
		logger.Fatalf("receipts handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/readyz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/accounts", householdHandler)
	mux.Handle("/api/v1/accounts/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if paymentHandler.Handles(r) {
			paymentHandler.ServeHTTP(w, r)
			return
		}
		householdHandler.ServeHTTP(w, r)
	}))
	mux.Handle("/api/v1/receipts", receiptsHandler)
	mux.Handle("/api/v1/receipts/", receiptsHandler)
	mux.Handle("/api/v1/stats", apihttp.NewStatsHandler(db))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/readyz", apihttp.NewReadyHandler(db))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func buildOracle(cfg paymentapp.OracleConfig) (paymentapp.PriceOracle, error) {
	if cfg.BaseURL != "" {
		return oracle.NewClient(cfg.BaseURL)
	}
	quotes := make(map[string]payment.Quote, len(cfg.Static))
	for feedID, static := range cfg.Static {
		quote, err := oracle.ParseQuote(static.Price, static.Decimals)
		if err != nil {
			return nil, err
		}
		quotes[feedID] = quote
	}
	return oracle.NewStatic(quotes), nil
}

type config struct {
	DatabaseURL          string
	HTTPAddr             string
	JWTSecret            string
	LowBalanceWebhookURL string
	NotifyCooldown       time.Duration
	OutboxInterval       time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:          getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:             getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:            getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		LowBalanceWebhookURL: getenvDefault("LOW_BALANCE_WEBHOOK_URL", ""),
		NotifyCooldown:       getenvDuration("LOW_BALANCE_NOTIFY_COOLDOWN", time.Hour),
		OutboxInterval:       getenvDuration("OUTBOX_DISPATCH_INTERVAL", 30*time.Second),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
