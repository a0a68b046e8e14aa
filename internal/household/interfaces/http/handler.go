package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"homevault/internal/audit"
	"homevault/internal/auth"
	"homevault/internal/household/application"
	household "homevault/internal/household/domain"
	"homevault/internal/observability/metrics"
)

// Handler provides household account HTTP endpoints.
// The caller principal is taken from the authenticated request context,
// access decisions themselves live in the account aggregate.
type Handler struct {
	service     *application.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("household handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles /api/v1/accounts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/accounts":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCreate(w, r)
		return
	case strings.HasPrefix(r.URL.Path, "/api/v1/accounts/"):
		h.handleAccount(w, r)
		return
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID              string `json:"id"`
		SettlementAsset string `json:"settlement_asset"`
		SettlementFeed  string `json:"settlement_feed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	owner := auth.PrincipalFromContext(r.Context())
	if owner == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.service.CreateAccount(r.Context(), req.ID, owner, req.SettlementAsset, req.SettlementFeed); err != nil {
		respondDomainError(w, err)
		return
	}
	h.writeAudit(r, "account.create", req.ID, map[string]string{"settlement_asset": req.SettlementAsset})
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/accounts/")
	parts := strings.Split(path, "/")
	accountID := parts[0]
	if accountID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	caller := auth.PrincipalFromContext(r.Context())

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleSnapshot(w, r, accountID)
	case len(parts) == 2 && parts[1] == "assets" && r.Method == http.MethodGet:
		h.handleListAssets(w, r, accountID)
	case len(parts) == 2 && parts[1] == "assets" && r.Method == http.MethodPost:
		h.handleAddAsset(w, r, accountID, caller)
	case len(parts) == 3 && parts[1] == "assets" && r.Method == http.MethodDelete:
		h.handleRemoveAsset(w, r, accountID, caller, parts[2])
	case len(parts) == 2 && parts[1] == "members" && r.Method == http.MethodPost:
		h.handleAddMember(w, r, accountID, caller)
	case len(parts) == 3 && parts[1] == "members" && r.Method == http.MethodDelete:
		h.handleRemoveMember(w, r, accountID, caller, parts[2])
	case len(parts) == 3 && parts[1] == "roles" && r.Method == http.MethodPost:
		h.handleRoleAction(w, r, accountID, caller, parts[2])
	case len(parts) == 2 && parts[1] == "settlement" && r.Method == http.MethodPut:
		h.handleSetSettlement(w, r, accountID, caller)
	case len(parts) == 2 && parts[1] == "deposit" && r.Method == http.MethodPost:
		h.handleDeposit(w, r, accountID, caller)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request, accountID string) {
	snap, err := h.service.GetSnapshot(r.Context(), accountID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	type portfolioEntry struct {
		AssetID     string `json:"asset_id"`
		PriceFeedID string `json:"price_feed_id"`
	}
	resp := struct {
		AccountID       string            `json:"account_id"`
		Owner           string            `json:"owner"`
		Members         []string          `json:"members"`
		Portfolio       []portfolioEntry  `json:"portfolio"`
		SettlementAsset string            `json:"settlement_asset"`
		SettlementFeed  string            `json:"settlement_feed"`
		Balances        map[string]string `json:"balances"`
	}{
		AccountID:       snap.AccountID,
		Owner:           snap.Owner,
		Members:         snap.Members,
		SettlementAsset: snap.SettlementAsset,
		SettlementFeed:  snap.SettlementFeed,
		Balances:        snap.Balances,
	}
	for _, entry := range snap.Portfolio {
		resp.Portfolio = append(resp.Portfolio, portfolioEntry{AssetID: entry.AssetID, PriceFeedID: entry.PriceFeedID})
	}
	writeJSON(w, resp)
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request, accountID string) {
	assets, err := h.service.ListAssets(r.Context(), accountID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	type entry struct {
		AssetID     string `json:"asset_id"`
		PriceFeedID string `json:"price_feed_id"`
	}
	result := make([]entry, 0, len(assets))
	for _, asset := range assets {
		result = append(result, entry{AssetID: asset.AssetID, PriceFeedID: asset.PriceFeedID})
	}
	writeJSON(w, result)
}

func (h *Handler) handleAddAsset(w http.ResponseWriter, r *http.Request, accountID, caller string) {
	var req struct {
		AssetID     string `json:"asset_id"`
		PriceFeedID string `json:"price_feed_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.service.AddAsset(r.Context(), accountID, caller, req.AssetID, req.PriceFeedID); err != nil {
		respondDomainError(w, err)
		return
	}
	h.writeAudit(r, "asset.add", accountID, map[string]string{"asset_id": req.AssetID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveAsset(w http.ResponseWriter, r *http.Request, accountID, caller, rawIndex string) {
	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return
	}
	if err := h.service.RemoveAsset(r.Context(), accountID, caller, index); err != nil {
		respondDomainError(w, err)
		return
	}
	h.writeAudit(r, "asset.remove", accountID, map[string]string{"index": rawIndex})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request, accountID, caller string) {
	var req struct {
		Principal string `json:"principal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.service.AddMember(r.Context(), accountID, caller, req.Principal); err != nil {
		respondDomainError(w, err)
		return
	}
	metrics.IncMembershipMutation("member.add")
	h.writeAudit(r, "member.add", accountID, map[string]string{"principal": req.Principal})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request, accountID, caller, principal string) {
	if err := h.service.RemoveMember(r.Context(), accountID, caller, principal); err != nil {
		respondDomainError(w, err)
		return
	}
	metrics.IncMembershipMutation("member.remove")
	h.writeAudit(r, "member.remove", accountID, map[string]string{"principal": principal})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRoleAction(w http.ResponseWriter, r *http.Request, accountID, caller, action string) {
	var req struct {
		Principal string `json:"principal"`
		Role      string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var err error
	switch action {
	case "grant":
		err = h.service.GrantRole(r.Context(), accountID, caller, req.Principal, req.Role)
	case "revoke":
		err = h.service.RevokeRole(r.Context(), accountID, caller, req.Principal, req.Role)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	metrics.IncMembershipMutation("role." + action)
	h.writeAudit(r, "role."+action, accountID, map[string]string{"principal": req.Principal, "role": req.Role})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetSettlement(w http.ResponseWriter, r *http.Request, accountID, caller string) {
	var req struct {
		AssetID     string `json:"asset_id"`
		PriceFeedID string `json:"price_feed_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if err := h.service.SetSettlement(r.Context(), accountID, caller, req.AssetID, req.PriceFeedID); err != nil {
		respondDomainError(w, err)
		return
	}
	h.writeAudit(r, "settlement.set", accountID, map[string]string{"asset_id": req.AssetID})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request, accountID, caller string) {
	var req struct {
		AssetID string `json:"asset_id"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "amount must be a decimal string", http.StatusBadRequest)
		return
	}
	if err := h.service.Deposit(r.Context(), accountID, caller, req.AssetID, amount); err != nil {
		respondDomainError(w, err)
		return
	}
	h.writeAudit(r, "deposit", accountID, map[string]string{"asset_id": req.AssetID, "amount": req.Amount})
	w.WriteHeader(http.StatusNoContent)
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
		ResourceType: "account",
		ResourceID:   accountID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, household.ErrAccountNotFound):
		http.Error(w, "account not found", http.StatusNotFound)
	case errors.Is(err, household.ErrNotAuthorized),
		errors.Is(err, household.ErrCannotRemoveOwner),
		errors.Is(err, household.ErrCannotModifyOwnerRole):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, household.ErrNotMember),
		errors.Is(err, household.ErrAlreadyMember),
		errors.Is(err, household.ErrUnknownRole),
		errors.Is(err, household.ErrZeroAsset),
		errors.Is(err, household.ErrAssetExists),
		errors.Is(err, household.ErrInvalidIndex),
		errors.Is(err, household.ErrNoChange),
		errors.Is(err, household.ErrNegativeAmount),
		errors.Is(err, household.ErrEmptyAccountID),
		errors.Is(err, household.ErrEmptyPrincipal):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, household.ErrAccountExists),
		errors.Is(err, household.ErrInsufficientBalance):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
