package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func validRule() PricingRule {
	return PricingRule{
		Category:    "dining",
		BaseCredits: 1,
		PriceTiers: []PriceTier{
			{MinPrice: 0, MaxPrice: f(10000), CreditAdjustment: 0},
			{MinPrice: 10001, MaxPrice: nil, CreditAdjustment: 2},
		},
		PriorityMultipliers: map[string]float64{
			PriorityStandard: 1,
			PriorityUrgent:   2,
		},
		BudgetMultipliers: []BudgetThreshold{
			{Min: 0, Max: f(100000), Multiplier: 1},
			{Min: 100001, Max: nil, Multiplier: 1.5},
		},
		TimeMultipliers: &TimeMultipliers{PeakSeason: 1.2, LastMinute: 1.5, AdvanceBooking: 0.9},
		IsActive:        true,
	}
}

func TestPricingRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PricingRule)
		wantErr string
	}{
		{
			name:   "valid rule",
			mutate: func(r *PricingRule) {},
		},
		{
			name: "minimal rule with no sub-tables",
			mutate: func(r *PricingRule) {
				r.PriceTiers = nil
				r.PriorityMultipliers = nil
				r.BudgetMultipliers = nil
				r.TimeMultipliers = nil
			},
		},
		{
			name:    "empty category",
			mutate:  func(r *PricingRule) { r.Category = "" },
			wantErr: "Category is required",
		},
		{
			name:    "negative base credits",
			mutate:  func(r *PricingRule) { r.BaseCredits = -1 },
			wantErr: "Base credits must be non-negative",
		},
		{
			name:   "zero base credits is allowed",
			mutate: func(r *PricingRule) { r.BaseCredits = 0 },
		},
		{
			name:    "negative tier min price",
			mutate:  func(r *PricingRule) { r.PriceTiers[0].MinPrice = -5 },
			wantErr: "min price must be non-negative",
		},
		{
			name:    "tier max below min",
			mutate:  func(r *PricingRule) { r.PriceTiers[0].MaxPrice = f(-1) },
			wantErr: "max price is below min price",
		},
		{
			name: "tier after unbounded tier",
			mutate: func(r *PricingRule) {
				r.PriceTiers = []PriceTier{
					{MinPrice: 0, MaxPrice: nil},
					{MinPrice: 100, MaxPrice: nil},
				}
			},
			wantErr: "follows an unbounded tier",
		},
		{
			name: "overlapping tiers",
			mutate: func(r *PricingRule) {
				r.PriceTiers = []PriceTier{
					{MinPrice: 0, MaxPrice: f(10000)},
					{MinPrice: 10000, MaxPrice: nil},
				}
			},
			wantErr: "overlaps the previous tier",
		},
		{
			name:    "zero priority multiplier",
			mutate:  func(r *PricingRule) { r.PriorityMultipliers["urgent"] = 0 },
			wantErr: "must be positive",
		},
		{
			name:    "negative priority multiplier",
			mutate:  func(r *PricingRule) { r.PriorityMultipliers["urgent"] = -2 },
			wantErr: "must be positive",
		},
		{
			name:    "zero budget multiplier",
			mutate:  func(r *PricingRule) { r.BudgetMultipliers[0].Multiplier = 0 },
			wantErr: "multiplier must be positive",
		},
		{
			name: "overlapping budget thresholds",
			mutate: func(r *PricingRule) {
				r.BudgetMultipliers = []BudgetThreshold{
					{Min: 0, Max: f(50000), Multiplier: 1},
					{Min: 40000, Max: nil, Multiplier: 2},
				}
			},
			wantErr: "overlaps the previous threshold",
		},
		{
			name:    "non-positive time multiplier",
			mutate:  func(r *PricingRule) { r.TimeMultipliers.LastMinute = 0 },
			wantErr: "Time multipliers must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)
			err := rule.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Equal(t, EINVALID, ErrorCode(err))
				assert.Contains(t, ErrorMessage(err), tt.wantErr)
			}
		})
	}
}

func TestPriceTier_Contains(t *testing.T) {
	bounded := PriceTier{MinPrice: 10001, MaxPrice: f(50000)}
	unbounded := PriceTier{MinPrice: 100001, MaxPrice: nil}

	assert.False(t, bounded.Contains(10000))
	assert.True(t, bounded.Contains(10001))
	assert.True(t, bounded.Contains(50000)) // upper bound inclusive
	assert.False(t, bounded.Contains(50001))

	assert.True(t, unbounded.Contains(100001))
	assert.True(t, unbounded.Contains(99999999))
	assert.False(t, unbounded.Contains(100000))
}

func TestBudgetThreshold_Contains(t *testing.T) {
	th := BudgetThreshold{Min: 0, Max: f(100000), Multiplier: 1}

	assert.True(t, th.Contains(0))
	assert.True(t, th.Contains(100000))
	assert.False(t, th.Contains(100001))
}
