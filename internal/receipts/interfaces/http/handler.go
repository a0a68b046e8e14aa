package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"homevault/internal/observability/metrics"
	"homevault/internal/receipts/application"
	receipts "homevault/internal/receipts/domain"
	"homevault/internal/receipts/interfaces"
)

// Handler provides receipt HTTP endpoints.
type Handler struct {
	recorder *application.Recorder
}

// NewHandler constructs a handler.
func NewHandler(recorder *application.Recorder) (*Handler, error) {
	if recorder == nil {
		return nil, errors.New("receipts handler: nil recorder")
	}
	return &Handler{recorder: recorder}, nil
}

// ServeHTTP handles /api/v1/receipts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case r.URL.Path == "/api/v1/receipts":
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/receipts/"):
		h.handleExport(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		http.Error(w, "account_id is required", http.StatusBadRequest)
		return
	}

	list, err := h.recorder.List(r.Context(), accountID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type item struct {
		ID          string    `json:"id"`
		ProviderID  string    `json:"provider_id"`
		AssetUsed   string    `json:"asset_used"`
		AmountSpent string    `json:"amount_spent"`
		AmountPaid  string    `json:"amount_paid"`
		Direct      bool      `json:"direct"`
		PaidAt      time.Time `json:"paid_at"`
	}
	result := make([]item, 0, len(list))
	for _, receipt := range list {
		result = append(result, item{
			ID:          receipt.ID,
			ProviderID:  receipt.ProviderID,
			AssetUsed:   receipt.AssetUsed,
			AmountSpent: receipt.AmountSpent.String(),
			AmountPaid:  receipt.AmountPaid.String(),
			Direct:      receipt.Direct,
			PaidAt:      receipt.PaidAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/receipts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || !strings.HasPrefix(parts[1], "export.") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	accountID := parts[0]
	format := strings.TrimPrefix(parts[1], "export.")

	start := time.Now()
	list, err := h.recorder.List(r.Context(), accountID)
	if err != nil {
		metrics.ObserveReceiptExport(format, metrics.ResultError, time.Since(start))
		if errors.Is(err, receipts.ErrEmptyAccountID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var payload []byte
	var contentType, filename string
	switch format {
	case "pdf":
		payload, err = interfaces.BuildReceiptsPDF(accountID, list)
		contentType = "application/pdf"
		filename = "receipts.pdf"
	case "xlsx":
		payload, err = interfaces.BuildReceiptsXLSX(accountID, list)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "receipts.xlsx"
	case "csv":
		payload, err = interfaces.BuildReceiptsCSV(list)
		contentType = "text/csv"
		filename = "receipts.csv"
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		metrics.ObserveReceiptExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.ObserveReceiptExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(payload)
}
