// Package domain contains core business types and interfaces.
//
// This file defines the pricing rule model: per-category credit rules with
// tiered partner-price adjustments and priority/budget/time multipliers,
// plus the per-request context and the calculated breakdown.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Priority tiers recognized by the cost calculator.
const (
	PriorityStandard  = "standard"
	PriorityPriority  = "priority"
	PriorityUrgent    = "urgent"
	PriorityImmediate = "immediate"
)

// PriceTier adds a flat credit adjustment when the partner service price
// falls inside [MinPrice, MaxPrice]. A nil MaxPrice means unbounded above.
// Tiers are stored non-overlapping and ascending by MinPrice.
type PriceTier struct {
	MinPrice         float64  `json:"min_price"`
	MaxPrice         *float64 `json:"max_price"`
	CreditAdjustment float64  `json:"credit_adjustment"`
}

// Contains reports whether price falls inside the tier's inclusive range.
func (t PriceTier) Contains(price float64) bool {
	if price < t.MinPrice {
		return false
	}
	return t.MaxPrice == nil || price <= *t.MaxPrice
}

// BudgetThreshold scales the cost when the member's budget ceiling falls
// inside [Min, Max]. A nil Max means unbounded above.
type BudgetThreshold struct {
	Min        float64  `json:"min"`
	Max        *float64 `json:"max"`
	Multiplier float64  `json:"multiplier"`
}

// Contains reports whether budget falls inside the threshold's inclusive range.
func (b BudgetThreshold) Contains(budget float64) bool {
	if budget < b.Min {
		return false
	}
	return b.Max == nil || budget <= *b.Max
}

// TimeMultipliers holds the three timing-based multipliers. At most one of
// them ever applies to a single request.
type TimeMultipliers struct {
	PeakSeason     float64 `json:"peak_season"`
	LastMinute     float64 `json:"last_minute"`
	AdvanceBooking float64 `json:"advance_booking"`
}

// PricingRule is the per-category pricing configuration. The sub-tables are
// optional: a nil table disables the corresponding adjustment stage (tier
// and priority stages then fall back to built-in defaults; budget and time
// stages stay neutral).
type PricingRule struct {
	ID                  uuid.UUID          `json:"id"`
	Category            string             `json:"category"`
	BaseCredits         float64            `json:"base_credits"`
	PriceTiers          []PriceTier        `json:"price_tiers,omitempty"`
	PriorityMultipliers map[string]float64 `json:"priority_multipliers,omitempty"`
	BudgetMultipliers   []BudgetThreshold  `json:"budget_multipliers,omitempty"`
	TimeMultipliers     *TimeMultipliers   `json:"time_multipliers,omitempty"`
	IsActive            bool               `json:"is_active"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// Validate checks rule invariants before an administrative write.
func (r *PricingRule) Validate() error {
	const op = "pricing.rule_validate"

	if r.Category == "" {
		return Invalid(op, "Category is required")
	}
	if r.BaseCredits < 0 {
		return Invalid(op, "Base credits must be non-negative")
	}
	var prevMax *float64
	for i, tier := range r.PriceTiers {
		if tier.MinPrice < 0 {
			return Invalid(op, fmt.Sprintf("Price tier %d: min price must be non-negative", i))
		}
		if tier.MaxPrice != nil && *tier.MaxPrice < tier.MinPrice {
			return Invalid(op, fmt.Sprintf("Price tier %d: max price is below min price", i))
		}
		if i > 0 {
			if prevMax == nil {
				return Invalid(op, fmt.Sprintf("Price tier %d: follows an unbounded tier", i))
			}
			if tier.MinPrice <= *prevMax {
				return Invalid(op, fmt.Sprintf("Price tier %d: overlaps the previous tier", i))
			}
		}
		prevMax = tier.MaxPrice
	}
	for name, m := range r.PriorityMultipliers {
		if m <= 0 {
			return Invalid(op, fmt.Sprintf("Priority multiplier %q must be positive", name))
		}
	}
	prevMax = nil
	for i, th := range r.BudgetMultipliers {
		if th.Multiplier <= 0 {
			return Invalid(op, fmt.Sprintf("Budget threshold %d: multiplier must be positive", i))
		}
		if th.Max != nil && *th.Max < th.Min {
			return Invalid(op, fmt.Sprintf("Budget threshold %d: max is below min", i))
		}
		if i > 0 {
			if prevMax == nil {
				return Invalid(op, fmt.Sprintf("Budget threshold %d: follows an unbounded threshold", i))
			}
			if th.Min <= *prevMax {
				return Invalid(op, fmt.Sprintf("Budget threshold %d: overlaps the previous threshold", i))
			}
		}
		prevMax = th.Max
	}
	if tm := r.TimeMultipliers; tm != nil {
		if tm.PeakSeason <= 0 || tm.LastMinute <= 0 || tm.AdvanceBooking <= 0 {
			return Invalid(op, "Time multipliers must be positive")
		}
	}
	return nil
}

// PricingContext is the per-request input to the cost calculator.
// PartnerServicePrice and BudgetMax use zero to mean "not provided".
type PricingContext struct {
	Category            string  `json:"category"`
	PartnerServicePrice float64 `json:"partner_service_price,omitempty"`
	Priority            string  `json:"priority,omitempty"`
	BudgetMax           float64 `json:"budget_max,omitempty"`
	IsLastMinute        bool    `json:"is_last_minute,omitempty"`
	IsAdvanceBooking    bool    `json:"is_advance_booking,omitempty"`
	IsPeakSeason        bool    `json:"is_peak_season,omitempty"`
}

// PricingBreakdown is the calculator output: the contributing factors, the
// final integer credit cost, and ordered human-readable lines explaining
// each factor that applied.
type PricingBreakdown struct {
	BaseCost           float64  `json:"base_cost"`
	TierAdjustment     float64  `json:"tier_adjustment"`
	PriorityMultiplier float64  `json:"priority_multiplier"`
	BudgetMultiplier   float64  `json:"budget_multiplier"`
	TimeMultiplier     float64  `json:"time_multiplier"`
	FinalCost          int64    `json:"final_cost"`
	Lines              []string `json:"lines"`
}

// Rule change actions recorded in the audit history.
const (
	RuleActionCreate = "create"
	RuleActionUpdate = "update"
	RuleActionDelete = "delete"
)

// RuleChange is one immutable entry in the pricing rule audit history.
// Previous and New hold JSON-encoded rule snapshots; Previous is nil for
// creates and New is nil for deletes.
type RuleChange struct {
	ID        uuid.UUID       `json:"id"`
	RuleID    uuid.UUID       `json:"rule_id"`
	Category  string          `json:"category"`
	Action    string          `json:"action"`
	Previous  json.RawMessage `json:"previous,omitempty"`
	New       json.RawMessage `json:"new,omitempty"`
	ChangedBy string          `json:"changed_by"`
	CreatedAt time.Time       `json:"created_at"`
}
