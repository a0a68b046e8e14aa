package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "homevault_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	paymentAttempts *prometheus.CounterVec
	paymentLatency  *prometheus.HistogramVec
	paymentVolume   *prometheus.CounterVec

	lowBalanceAlerts prometheus.Counter

	membershipMutations *prometheus.CounterVec

	receiptExportTotal   *prometheus.CounterVec
	receiptExportLatency *prometheus.HistogramVec

	notifyDeliveries *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		paymentAttempts = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_attempts_total",
				Help: "Total bill payment attempts by mode and result",
			},
			[]string{"mode", "result"},
		)
		paymentLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_latency_seconds",
				Help:    "Bill payment latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		paymentVolume = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_volume_usd_total",
				Help: "Total paid bill value in USD by provider",
			},
			[]string{"provider"},
		)

		lowBalanceAlerts = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "low_balance_alerts_total",
				Help: "Total low balance warnings emitted",
			},
		)

		membershipMutations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "membership_mutations_total",
				Help: "Total household membership and role mutations by action",
			},
			[]string{"action"},
		)

		receiptExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "receipt_export_total",
				Help: "Total receipt export operations by format and result",
			},
			[]string{"format", "result"},
		)
		receiptExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "receipt_export_latency_seconds",
				Help:    "Receipt export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		notifyDeliveries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notify_deliveries_total",
				Help: "Total warning channel deliveries by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			paymentAttempts,
			paymentLatency,
			paymentVolume,
			lowBalanceAlerts,
			membershipMutations,
			receiptExportTotal,
			receiptExportLatency,
			notifyDeliveries,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObservePayment records a payment attempt with its mode, result and latency.
func ObservePayment(mode, result string, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if paymentAttempts != nil {
		paymentAttempts.WithLabelValues(mode, result).Inc()
	}
	if paymentLatency != nil {
		paymentLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddPaymentVolume accumulates paid bill value in USD.
func AddPaymentVolume(provider string, usd float64) {
	if provider == "" {
		provider = "unknown"
	}
	if usd <= 0 {
		return
	}
	if paymentVolume != nil {
		paymentVolume.WithLabelValues(provider).Add(usd)
	}
}

// IncLowBalanceAlert increments the low balance warning counter.
func IncLowBalanceAlert() {
	if lowBalanceAlerts != nil {
		lowBalanceAlerts.Inc()
	}
}

// IncMembershipMutation increments membership mutation counters.
func IncMembershipMutation(action string) {
	if action == "" {
		action = "unknown"
	}
	if membershipMutations != nil {
		membershipMutations.WithLabelValues(action).Inc()
	}
}

// ObserveReceiptExport records export latency and result.
func ObserveReceiptExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if receiptExportTotal != nil {
		receiptExportTotal.WithLabelValues(format, result).Inc()
	}
	if receiptExportLatency != nil {
		receiptExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncNotifyDelivery increments warning delivery counters.
func IncNotifyDelivery(result string) {
	if result == "" {
		result = resultSuccess
	}
	if notifyDeliveries != nil {
		notifyDeliveries.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	PaymentModeDirect = "direct"
	PaymentModeSwap   = "swap"
)
