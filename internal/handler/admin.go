// Administrative rule management endpoints. All routes are mounted behind
// the admin key middleware.
//
// Routes handled:
//   - GET    /api/v1/admin/rules                     -> ListRules
//   - POST   /api/v1/admin/rules                     -> CreateRule
//   - GET    /api/v1/admin/rules/{category}          -> GetRule
//   - PUT    /api/v1/admin/rules/{category}          -> UpdateRule
//   - DELETE /api/v1/admin/rules/{category}          -> DeleteRule
//   - GET    /api/v1/admin/rules/{category}/history  -> RuleHistory
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/averline/concierge/internal/domain"
	"github.com/averline/concierge/internal/middleware"
	"github.com/averline/concierge/internal/service"
)

// AdminHandler handles pricing rule administration.
type AdminHandler struct {
	pricing service.PricingService
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(pricingService service.PricingService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		pricing: pricingService,
		logger:  logger,
	}
}

// RegisterRoutes registers admin routes on the provided mux behind the
// given authentication middleware.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/admin/rules", requireAdmin(http.HandlerFunc(h.ListRules)))
	mux.Handle("POST /api/v1/admin/rules", requireAdmin(http.HandlerFunc(h.CreateRule)))
	mux.Handle("GET /api/v1/admin/rules/{category}", requireAdmin(http.HandlerFunc(h.GetRule)))
	mux.Handle("PUT /api/v1/admin/rules/{category}", requireAdmin(http.HandlerFunc(h.UpdateRule)))
	mux.Handle("DELETE /api/v1/admin/rules/{category}", requireAdmin(http.HandlerFunc(h.DeleteRule)))
	mux.Handle("GET /api/v1/admin/rules/{category}/history", requireAdmin(http.HandlerFunc(h.RuleHistory)))
}

// ruleRequest is the request body for rule create and update.
type ruleRequest struct {
	Category            string                   `json:"category"`
	BaseCredits         float64                  `json:"base_credits"`
	PriceTiers          []domain.PriceTier       `json:"price_tiers,omitempty"`
	PriorityMultipliers map[string]float64       `json:"priority_multipliers,omitempty"`
	BudgetMultipliers   []domain.BudgetThreshold `json:"budget_multipliers,omitempty"`
	TimeMultipliers     *domain.TimeMultipliers  `json:"time_multipliers,omitempty"`
	IsActive            *bool                    `json:"is_active,omitempty"`
}

// ListRules returns every pricing rule, active and inactive.
func (h *AdminHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.pricing.ListRules(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

// GetRule returns the rule for a single category.
func (h *AdminHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")

	rule, err := h.pricing.GetRule(r.Context(), category)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// CreateRule creates a new pricing rule.
func (h *AdminHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("pricing.create_rule", "Invalid request body"))
		return
	}

	rule, err := h.pricing.CreateRule(r.Context(), req.toParams(middleware.AdminActor(r.Context())))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// UpdateRule replaces the configuration of an existing rule. The category
// comes from the URL path; a category in the body is ignored.
func (h *AdminHandler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("pricing.update_rule", "Invalid request body"))
		return
	}
	req.Category = r.PathValue("category")

	rule, err := h.pricing.UpdateRule(r.Context(), req.toParams(middleware.AdminActor(r.Context())))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule removes a pricing rule.
func (h *AdminHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")

	if err := h.pricing.DeleteRule(r.Context(), category, middleware.AdminActor(r.Context())); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RuleHistory returns the audit history for a category, newest first.
// The optional limit query parameter caps the number of entries.
func (h *AdminHandler) RuleHistory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			ErrorResponse(w, r, h.logger, domain.Invalid("pricing.rule_history", "limit must be a positive integer"))
			return
		}
		limit = n
	}

	changes, err := h.pricing.RuleHistory(r.Context(), category, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": changes})
}

func (req ruleRequest) toParams(actor string) service.RuleParams {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return service.RuleParams{
		Category:            req.Category,
		BaseCredits:         req.BaseCredits,
		PriceTiers:          req.PriceTiers,
		PriorityMultipliers: req.PriorityMultipliers,
		BudgetMultipliers:   req.BudgetMultipliers,
		TimeMultipliers:     req.TimeMultipliers,
		IsActive:            active,
		Actor:               actor,
	}
}
