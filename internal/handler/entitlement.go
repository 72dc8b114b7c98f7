// Package handler contains the HTTP layer of the entitlement service.
//
// Handlers are deliberately thin: decode, validate, delegate to the service,
// encode. Denials (capacity exceeded, insufficient balance, already used
// today) are successful responses carrying the outcome and the concrete
// numbers; only faults and bad requests become HTTP errors.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dona-app/entitlement/internal/auth"
	"github.com/dona-app/entitlement/internal/domain"
	"github.com/dona-app/entitlement/internal/service"
)

// EntitlementHandler serves the /api/v1 entitlement endpoints.
type EntitlementHandler struct {
	svc    service.EntitlementService
	logger *slog.Logger
}

// NewEntitlementHandler creates a new EntitlementHandler.
func NewEntitlementHandler(svc service.EntitlementService, logger *slog.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		svc:    svc,
		logger: logger,
	}
}

// RegisterRoutes registers all entitlement endpoints on the mux. The caller
// is expected to wrap the mux with the service auth middleware.
func (h *EntitlementHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/store", h.Store)
	mux.HandleFunc("POST /api/v1/spend", h.Spend)
	mux.HandleFunc("POST /api/v1/daily", h.Daily)
	mux.HandleFunc("POST /api/v1/completions", h.RecordCompletion)
	mux.HandleFunc("GET /api/v1/usage", h.Usage)
}

// =============================================================================
// Request / Response Types
// =============================================================================

type storeRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type storeResponse struct {
	Allowed  bool   `json:"allowed"`
	Used     int64  `json:"used"`
	Limit    int64  `json:"limit"` // -1 means unlimited
	RecordID string `json:"record_id,omitempty"`
}

type spendRequest struct {
	Amount int64 `json:"amount"`
}

type spendResponse struct {
	Spent     bool  `json:"spent"`
	Remaining int64 `json:"remaining"`
}

type dailyRequest struct {
	Kind string `json:"kind"`
}

type dailyResponse struct {
	Allowed          bool   `json:"allowed"`
	AlreadyUsedToday bool   `json:"already_used_today"`
	Day              string `json:"day"`
}

type completionRequest struct {
	MilestoneType string `json:"milestone_type"`
}

type completionResponse struct {
	Count          int64 `json:"count"`
	RewardGranted  bool  `json:"reward_granted"`
	MilestoneIndex int64 `json:"milestone_index,omitempty"`
	Balance        int64 `json:"balance"`
}

type usageKindResponse struct {
	Kind  string `json:"kind"`
	Used  int64  `json:"used"`
	Limit int64  `json:"limit"`
}

type usageResponse struct {
	Tier          string              `json:"tier"`
	Capacities    []usageKindResponse `json:"capacities"`
	CouponBalance int64               `json:"coupon_balance"`
	AIUsedToday   bool                `json:"ai_used_today"`
}

// =============================================================================
// Handlers
// =============================================================================

// Store handles POST /api/v1/store, the capacity-gated store.
func (h *EntitlementHandler) Store(w http.ResponseWriter, r *http.Request) {
	accountID := auth.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.store", "Invalid request body"))
		return
	}

	kind, ok := domain.ParseResourceKind(req.Kind)
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.store", "Unknown resource kind"))
		return
	}

	result, err := h.svc.TryStore(r.Context(), accountID, kind, req.Payload)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := storeResponse{
		Allowed: result.Allowed,
		Used:    result.Used,
		Limit:   result.Limit,
	}
	if result.Record != nil {
		resp.RecordID = result.Record.ID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Spend handles POST /api/v1/spend, the atomic coupon spend.
func (h *EntitlementHandler) Spend(w http.ResponseWriter, r *http.Request) {
	accountID := auth.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.spend", "Invalid request body"))
		return
	}

	result, err := h.svc.TrySpend(r.Context(), accountID, req.Amount)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, spendResponse{
		Spent:     result.Spent,
		Remaining: result.Remaining,
	})
}

// Daily handles POST /api/v1/daily, the once-per-day gate.
func (h *EntitlementHandler) Daily(w http.ResponseWriter, r *http.Request) {
	accountID := auth.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req dailyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.daily", "Invalid request body"))
		return
	}

	kind, ok := domain.ParseResourceKind(req.Kind)
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.daily", "Unknown resource kind"))
		return
	}

	result, err := h.svc.TryDaily(r.Context(), accountID, kind)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dailyResponse{
		Allowed:          result.Allowed,
		AlreadyUsedToday: result.AlreadyUsedToday,
		Day:              result.Day,
	})
}

// RecordCompletion handles POST /api/v1/completions, the milestone engine.
func (h *EntitlementHandler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	accountID := auth.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.completions", "Invalid request body"))
		return
	}

	if domain.MilestoneType(req.MilestoneType) != domain.MilestoneStoryCompletion {
		ErrorResponse(w, r, h.logger, domain.Invalid("handler.completions", "Unknown milestone type"))
		return
	}

	result, err := h.svc.RecordCompletion(r.Context(), accountID, domain.MilestoneType(req.MilestoneType))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, completionResponse{
		Count:          result.Count,
		RewardGranted:  result.RewardGranted,
		MilestoneIndex: result.MilestoneIndex,
		Balance:        result.Balance,
	})
}

// Usage handles GET /api/v1/usage, the read-only standing snapshot.
func (h *EntitlementHandler) Usage(w http.ResponseWriter, r *http.Request) {
	accountID := auth.GetAccountID(r.Context())
	if accountID == uuid.Nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	snapshot, err := h.svc.Usage(r.Context(), accountID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	resp := usageResponse{
		Tier:          string(snapshot.Tier),
		CouponBalance: snapshot.CouponBalance,
		AIUsedToday:   snapshot.AIUsedToday,
	}
	for _, u := range snapshot.Capacities {
		resp.Capacities = append(resp.Capacities, usageKindResponse{
			Kind:  string(u.Kind),
			Used:  u.Used,
			Limit: u.Limit,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
