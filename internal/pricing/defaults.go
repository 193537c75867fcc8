// Package pricing implements the dynamic credit-cost engine: built-in
// default tables, the pure cost calculator, the TTL rule cache, and the
// date classification helpers that feed context flags.
package pricing

import "github.com/averline/concierge/internal/domain"

// defaultBaseCredits is the fallback base cost per service category, used
// when no active rule exists for the category. Unknown categories cost 1.
var defaultBaseCredits = map[string]float64{
	"private_aviation": 3,
	"yacht_charter":    3,
	"real_estate":      2,
	"collectibles":     2,
	"events_access":    2,
	"security":         2,
	"wellness":         1,
	"travel":           1,
	"dining":           1,
	"chauffeur":        1,
	"shopping":         1,
}

// DefaultBaseCredits returns the built-in base cost for a category,
// defaulting to 1 credit for unknown categories. Never zero: cost
// calculation gates the booking flow and must always resolve to a number.
func DefaultBaseCredits(category string) float64 {
	if base, ok := defaultBaseCredits[category]; ok {
		return base
	}
	return 1
}

func ptr(v float64) *float64 { return &v }

// defaultPriceTiers is the fallback partner-price tier table, applied when
// a rule defines no tiers of its own. Boundaries are inclusive on both
// ends; the top tier is unbounded.
var defaultPriceTiers = []domain.PriceTier{
	{MinPrice: 0, MaxPrice: ptr(10000), CreditAdjustment: 0},
	{MinPrice: 10001, MaxPrice: ptr(50000), CreditAdjustment: 2},
	{MinPrice: 50001, MaxPrice: ptr(100000), CreditAdjustment: 5},
	{MinPrice: 100001, MaxPrice: nil, CreditAdjustment: 10},
}

// defaultPriorityMultipliers is the fallback priority table. A priority
// missing from whichever table is in effect multiplies by 1.
var defaultPriorityMultipliers = map[string]float64{
	domain.PriorityStandard:  1,
	domain.PriorityPriority:  1.5,
	domain.PriorityUrgent:    2,
	domain.PriorityImmediate: 3,
}

// DefaultRules returns the built-in defaults materialized as full rules,
// one per known category. Used by rulectl to seed a fresh database.
func DefaultRules() []domain.PricingRule {
	rules := make([]domain.PricingRule, 0, len(defaultBaseCredits))
	for category, base := range defaultBaseCredits {
		tiers := make([]domain.PriceTier, len(defaultPriceTiers))
		copy(tiers, defaultPriceTiers)
		priorities := make(map[string]float64, len(defaultPriorityMultipliers))
		for name, m := range defaultPriorityMultipliers {
			priorities[name] = m
		}
		rules = append(rules, domain.PricingRule{
			Category:            category,
			BaseCredits:         base,
			PriceTiers:          tiers,
			PriorityMultipliers: priorities,
			IsActive:            true,
		})
	}
	return rules
}
