package pricing

import (
	"strconv"

	"github.com/averline/concierge/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const breakdownSeparator = "--------------------------------"

// money formats partner prices and budgets with thousands separators for
// the human-readable breakdown lines.
var money = message.NewPrinter(language.English)

// Calculate converts a pricing context into a credit-cost breakdown given
// the resolved rule for the context's category, or nil when no active rule
// exists. It is pure and deterministic, and it never fails: a missing rule
// falls back to the built-in defaults, absent rule sub-tables leave the
// corresponding stage neutral.
//
// The stages run in fixed order: additive base + tier adjustment first,
// then the priority, budget, and time multipliers compound on that
// subtotal. The final cost is always rounded up so fractional credits are
// never under-charged.
func Calculate(pctx domain.PricingContext, rule *domain.PricingRule) domain.PricingBreakdown {
	priority := pctx.Priority
	if priority == "" {
		priority = domain.PriorityStandard
	}

	bd := domain.PricingBreakdown{
		PriorityMultiplier: 1,
		BudgetMultiplier:   1,
		TimeMultiplier:     1,
	}
	var lines []string

	// 1. Base cost: rule base, or the built-in per-category default.
	if rule != nil {
		bd.BaseCost = rule.BaseCredits
	} else {
		bd.BaseCost = DefaultBaseCredits(pctx.Category)
	}
	lines = append(lines, "Base cost ("+pctx.Category+"): "+formatCredits(bd.BaseCost)+" credits")

	// 2. Tier adjustment: first tier containing the partner price wins.
	if pctx.PartnerServicePrice > 0 {
		tiers := defaultPriceTiers
		if rule != nil && len(rule.PriceTiers) > 0 {
			tiers = rule.PriceTiers
		}
		for _, tier := range tiers {
			if tier.Contains(pctx.PartnerServicePrice) {
				bd.TierAdjustment = tier.CreditAdjustment
				break
			}
		}
		if bd.TierAdjustment > 0 {
			lines = append(lines, money.Sprintf("Partner price $%.0f: +%s credits",
				pctx.PartnerServicePrice, formatCredits(bd.TierAdjustment)))
		}
	}

	// 3. Priority multiplier: rule table if defined, else the built-in
	// table; a priority missing from the chosen table multiplies by 1.
	priorities := defaultPriorityMultipliers
	if rule != nil && rule.PriorityMultipliers != nil {
		priorities = rule.PriorityMultipliers
	}
	if m, ok := priorities[priority]; ok {
		bd.PriorityMultiplier = m
	}
	if bd.PriorityMultiplier > 1 {
		lines = append(lines, "Priority ("+priority+"): x"+formatCredits(bd.PriorityMultiplier))
	}

	// 4. Budget multiplier: rule thresholds only, no built-in fallback.
	if pctx.BudgetMax > 0 && rule != nil && len(rule.BudgetMultipliers) > 0 {
		for _, th := range rule.BudgetMultipliers {
			if th.Contains(pctx.BudgetMax) {
				bd.BudgetMultiplier = th.Multiplier
				break
			}
		}
		if bd.BudgetMultiplier > 1 {
			lines = append(lines, money.Sprintf("Budget ceiling $%.0f: x%s",
				pctx.BudgetMax, formatCredits(bd.BudgetMultiplier)))
		}
	}

	// 5. Time multiplier: rule-defined only. Flags are checked in fixed
	// precedence (last-minute, then advance booking, then peak season) so
	// at most one timing multiplier ever applies.
	if rule != nil && rule.TimeMultipliers != nil {
		switch {
		case pctx.IsLastMinute:
			bd.TimeMultiplier = rule.TimeMultipliers.LastMinute
			lines = append(lines, "Last-minute booking: x"+formatCredits(bd.TimeMultiplier))
		case pctx.IsAdvanceBooking:
			bd.TimeMultiplier = rule.TimeMultipliers.AdvanceBooking
			lines = append(lines, "Advance booking: x"+formatCredits(bd.TimeMultiplier))
		case pctx.IsPeakSeason:
			bd.TimeMultiplier = rule.TimeMultipliers.PeakSeason
			lines = append(lines, "Peak season: x"+formatCredits(bd.TimeMultiplier))
		}
	}

	// 6. Composition: multipliers compound on the additive subtotal, and
	// the result always rounds up to a whole credit.
	subtotal := decimal.NewFromFloat(bd.BaseCost).Add(decimal.NewFromFloat(bd.TierAdjustment))
	total := subtotal.
		Mul(decimal.NewFromFloat(bd.PriorityMultiplier)).
		Mul(decimal.NewFromFloat(bd.BudgetMultiplier)).
		Mul(decimal.NewFromFloat(bd.TimeMultiplier)).
		Ceil()
	bd.FinalCost = total.IntPart()
	if bd.FinalCost < 0 {
		bd.FinalCost = 0
	}

	lines = append(lines, breakdownSeparator)
	lines = append(lines, "Total: "+strconv.FormatInt(bd.FinalCost, 10)+" credits")
	bd.Lines = lines

	return bd
}

// formatCredits renders a credit amount or multiplier without trailing
// zeros ("1.5", not "1.500000").
func formatCredits(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
