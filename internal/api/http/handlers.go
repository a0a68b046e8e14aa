package apihttp

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// StatsHandler serves payment history statistics.
type StatsHandler struct {
	db *sql.DB
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(db *sql.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

type providerStat struct {
	ProviderID string `json:"provider_id"`
	Payments   int64  `json:"payments"`
	TotalPaid  string `json:"total_paid"`
}

type statsResponse struct {
	AccountID   string         `json:"account_id"`
	Payments    int64          `json:"payments"`
	LastPaidAt  *time.Time     `json:"last_paid_at,omitempty"`
	PerProvider []providerStat `json:"per_provider"`
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id is required", http.StatusBadRequest)
		return
	}

	resp := statsResponse{AccountID: accountID, PerProvider: []providerStat{}}

	var lastPaid sql.NullTime
	err := h.db.QueryRowContext(r.Context(), `
SELECT COUNT(*), MAX(paid_at)
FROM payment_receipts
WHERE account_id = $1`, accountID).Scan(&resp.Payments, &lastPaid)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}
	if lastPaid.Valid {
		at := lastPaid.Time.UTC()
		resp.LastPaidAt = &at
	}

	rows, err := h.db.QueryContext(r.Context(), `
SELECT provider_id, COUNT(*), COALESCE(SUM(amount_paid::numeric), 0)
FROM payment_receipts
WHERE account_id = $1
GROUP BY provider_id
ORDER BY provider_id`, accountID)
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var stat providerStat
		if err := rows.Scan(&stat.ProviderID, &stat.Payments, &stat.TotalPaid); err != nil {
			http.Error(w, "query stats error", http.StatusInternalServerError)
			return
		}
		resp.PerProvider = append(resp.PerProvider, stat)
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ReadyHandler reports readiness, including database reachability.
type ReadyHandler struct {
	db *sql.DB
}

// NewReadyHandler constructs a ReadyHandler.
func NewReadyHandler(db *sql.DB) *ReadyHandler {
	return &ReadyHandler{db: db}
}

// ServeHTTP handles GET /readyz.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.db == nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "db unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
