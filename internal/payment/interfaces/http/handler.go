package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"homevault/internal/audit"
	"homevault/internal/auth"
	household "homevault/internal/household/domain"
	"homevault/internal/payment/application"
	payment "homevault/internal/payment/domain"
)

// Handler provides bill payment HTTP endpoints.
type Handler struct {
	engine      *application.Engine
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(engine *application.Engine, auditLogger audit.Logger) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("payment handler: nil engine")
	}
	return &Handler{engine: engine, auditLogger: auditLogger}, nil
}

// Handles reports whether the request path belongs to this handler.
// Payment routes live under the account prefix next to the household
// routes, the composition root dispatches between the two.
func (h *Handler) Handles(r *http.Request) bool {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/accounts/")
	if path == r.URL.Path {
		return false
	}
	parts := strings.Split(path, "/")
	return len(parts) == 2 && (parts[1] == "pay" || parts[1] == "utilities")
}

// ServeHTTP handles /api/v1/accounts/{id}/pay and /utilities.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/accounts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	accountID := parts[0]

	switch {
	case parts[1] == "pay" && r.Method == http.MethodPost:
		h.handlePay(w, r, accountID)
	case parts[1] == "utilities" && r.Method == http.MethodPost:
		h.handleRegister(w, r, accountID)
	case parts[1] == "utilities" && r.Method == http.MethodGet:
		h.handleListUtilities(w, r, accountID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request, accountID string) {
	var req struct {
		ProviderID string `json:"provider_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.ProviderID == "" {
		http.Error(w, "provider_id is required", http.StatusBadRequest)
		return
	}

	caller := auth.PrincipalFromContext(r.Context())
	done, err := h.engine.PayBill(r.Context(), accountID, caller, req.ProviderID)
	if err != nil {
		respondPaymentError(w, err)
		return
	}
	h.writeAudit(r, "bill.pay", accountID, map[string]string{
		"provider_id": req.ProviderID,
		"attempt_id":  done.AttemptID,
		"asset_used":  done.AssetUsed,
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(done)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request, accountID string) {
	var req struct {
		Providers []string `json:"providers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if len(req.Providers) == 0 {
		http.Error(w, "providers is required", http.StatusBadRequest)
		return
	}

	caller := auth.PrincipalFromContext(r.Context())
	if err := h.engine.RegisterUtilities(r.Context(), accountID, caller, req.Providers); err != nil {
		respondPaymentError(w, err)
		return
	}
	h.writeAudit(r, "utilities.register", accountID, map[string]string{
		"providers": strings.Join(req.Providers, ","),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListUtilities(w http.ResponseWriter, r *http.Request, accountID string) {
	_ = r
	providers := h.engine.RegisteredProviders(accountID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]string{"providers": providers})
}

func respondPaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, household.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, household.ErrAccountNotFound),
		errors.Is(err, payment.ErrUnknownProvider):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, payment.ErrPastDue),
		errors.Is(err, payment.ErrNoBill),
		errors.Is(err, payment.ErrInsufficientBalance),
		errors.Is(err, payment.ErrEmptyPortfolio):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, payment.ErrInvalidQuote):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeAudit(r *http.Request, action, accountID string, meta map[string]string) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		AccountID:    accountID,
		Actor:        auth.PrincipalFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "payment",
		ResourceID:   accountID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
