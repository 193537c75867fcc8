// Package handler contains HTTP handlers for the concierge pricing API.
//
// This file implements the public credit-cost endpoints used by the booking
// flow.
//
// Routes handled:
//   - POST /api/v1/pricing/quote -> Quote
//   - GET  /api/v1/pricing/cost  -> Cost
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/averline/concierge/internal/domain"
	"github.com/averline/concierge/internal/pricing"
	"github.com/averline/concierge/internal/service"
)

// PricingHandler handles credit-cost quote requests.
type PricingHandler struct {
	pricing service.PricingService
	logger  *slog.Logger
}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler(pricingService service.PricingService, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		pricing: pricingService,
		logger:  logger,
	}
}

// RegisterRoutes registers pricing routes on the provided mux.
func (h *PricingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/v1/pricing/quote", http.HandlerFunc(h.Quote))
	mux.Handle("GET /api/v1/pricing/cost", http.HandlerFunc(h.Cost))
}

// quoteRequest is the request body for POST /api/v1/pricing/quote. The
// timing flags may be supplied directly or derived from requested_date.
type quoteRequest struct {
	Category            string  `json:"category"`
	PartnerServicePrice float64 `json:"partner_service_price,omitempty"`
	Priority            string  `json:"priority,omitempty"`
	BudgetMax           float64 `json:"budget_max,omitempty"`
	IsLastMinute        bool    `json:"is_last_minute,omitempty"`
	IsAdvanceBooking    bool    `json:"is_advance_booking,omitempty"`
	IsPeakSeason        bool    `json:"is_peak_season,omitempty"`
	RequestedDate       string  `json:"requested_date,omitempty"`
}

// quoteResponse is the response body for the quote endpoints.
type quoteResponse struct {
	Category  string                  `json:"category"`
	Breakdown domain.PricingBreakdown `json:"breakdown"`
}

// Quote returns a full credit-cost breakdown for a pricing context.
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("pricing.quote", "Invalid request body"))
		return
	}

	pctx, err := req.toContext()
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	bd := h.pricing.Quote(r.Context(), pctx)
	writeJSON(w, http.StatusOK, quoteResponse{Category: pctx.Category, Breakdown: bd})
}

// Cost returns only the final credit cost. Query parameters mirror the
// quote request body fields.
func (h *PricingHandler) Cost(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := quoteRequest{
		Category:         q.Get("category"),
		Priority:         q.Get("priority"),
		IsLastMinute:     q.Get("is_last_minute") == "true",
		IsAdvanceBooking: q.Get("is_advance_booking") == "true",
		IsPeakSeason:     q.Get("is_peak_season") == "true",
		RequestedDate:    q.Get("requested_date"),
	}
	if v := q.Get("partner_service_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("pricing.cost", "Invalid partner_service_price"))
			return
		}
		req.PartnerServicePrice = price
	}
	if v := q.Get("budget_max"); v != "" {
		budget, err := strconv.ParseFloat(v, 64)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("pricing.cost", "Invalid budget_max"))
			return
		}
		req.BudgetMax = budget
	}

	pctx, err := req.toContext()
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	cost := h.pricing.CreditCost(r.Context(), pctx)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category":    pctx.Category,
		"credit_cost": cost,
	})
}

func (req quoteRequest) toContext() (domain.PricingContext, error) {
	const op = "pricing.quote"

	if req.Category == "" {
		return domain.PricingContext{}, domain.Invalid(op, "Category is required")
	}
	if req.PartnerServicePrice < 0 {
		return domain.PricingContext{}, domain.Invalid(op, "Partner service price cannot be negative")
	}
	if req.BudgetMax < 0 {
		return domain.PricingContext{}, domain.Invalid(op, "Budget cannot be negative")
	}

	pctx := domain.PricingContext{
		Category:            req.Category,
		PartnerServicePrice: req.PartnerServicePrice,
		Priority:            req.Priority,
		BudgetMax:           req.BudgetMax,
		IsLastMinute:        req.IsLastMinute,
		IsAdvanceBooking:    req.IsAdvanceBooking,
		IsPeakSeason:        req.IsPeakSeason,
	}

	// Explicit flags win; a requested date only fills in flags the client
	// did not set.
	if req.RequestedDate != "" && !pctx.IsLastMinute && !pctx.IsAdvanceBooking && !pctx.IsPeakSeason {
		requested, err := time.Parse(time.RFC3339, req.RequestedDate)
		if err != nil {
			return domain.PricingContext{}, domain.Invalid(op, "requested_date must be RFC 3339")
		}
		pctx.IsLastMinute, pctx.IsAdvanceBooking, pctx.IsPeakSeason = pricing.ClassifyTiming(requested, time.Now())
	}

	return pctx, nil
}
