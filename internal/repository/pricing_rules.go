package repository

import (
	"context"
	"database/sql"

	"github.com/averline/concierge/internal/domain"
	"github.com/sqlc-dev/pqtype"
)

const ruleColumns = `id, category, base_credits, price_tiers, priority_multipliers,
	budget_multipliers, time_multipliers, is_active, created_at, updated_at`

// scanRule scans one pricing_rules row, parsing the JSONB sub-tables into
// their typed shapes.
func (r *Repository) scanRule(row interface{ Scan(...interface{}) error }) (domain.PricingRule, error) {
	var (
		rule       domain.PricingRule
		tiers      pqtype.NullRawMessage
		priorities pqtype.NullRawMessage
		budgets    pqtype.NullRawMessage
		times      pqtype.NullRawMessage
	)

	err := row.Scan(
		&rule.ID,
		&rule.Category,
		&rule.BaseCredits,
		&tiers,
		&priorities,
		&budgets,
		&times,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return domain.PricingRule{}, err
	}

	r.parseBlob(rule.Category, "price_tiers", tiers, &rule.PriceTiers)
	r.parseBlob(rule.Category, "priority_multipliers", priorities, &rule.PriorityMultipliers)
	r.parseBlob(rule.Category, "budget_multipliers", budgets, &rule.BudgetMultipliers)
	var tm domain.TimeMultipliers
	if r.parseBlob(rule.Category, "time_multipliers", times, &tm) {
		rule.TimeMultipliers = &tm
	}

	return rule, nil
}

// ListActiveRules returns all rules flagged active, keyed by category.
// Implements pricing.RuleSource.
func (r *Repository) ListActiveRules(ctx context.Context) (map[string]domain.PricingRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing_rules
		WHERE is_active = true
		ORDER BY category ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make(map[string]domain.PricingRule)
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules[rule.Category] = rule
	}
	return rules, rows.Err()
}

// ListRules returns all rules, active and inactive, ordered by category.
func (r *Repository) ListRules(ctx context.Context) ([]domain.PricingRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing_rules
		ORDER BY category ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.PricingRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetRuleByCategory returns the rule for a category regardless of its
// active flag. Returns sql.ErrNoRows when no rule exists.
func (r *Repository) GetRuleByCategory(ctx context.Context, category string) (domain.PricingRule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+`
		FROM pricing_rules
		WHERE category = $1`, category)
	return r.scanRule(row)
}

// CreateRule inserts a new rule and returns the stored row.
func (r *Repository) CreateRule(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error) {
	tiers, err := marshalBlob(rule.PriceTiers)
	if err != nil {
		return domain.PricingRule{}, err
	}
	priorities, err := marshalBlob(rule.PriorityMultipliers)
	if err != nil {
		return domain.PricingRule{}, err
	}
	budgets, err := marshalBlob(rule.BudgetMultipliers)
	if err != nil {
		return domain.PricingRule{}, err
	}
	times, err := marshalBlob(rule.TimeMultipliers)
	if err != nil {
		return domain.PricingRule{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO pricing_rules (
			category, base_credits, price_tiers, priority_multipliers,
			budget_multipliers, time_multipliers, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+ruleColumns,
		rule.Category, rule.BaseCredits, tiers, priorities, budgets, times, rule.IsActive)
	return r.scanRule(row)
}

// UpdateRule replaces the stored configuration for a rule's category and
// returns the stored row. Returns sql.ErrNoRows when the category has no
// rule.
func (r *Repository) UpdateRule(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error) {
	tiers, err := marshalBlob(rule.PriceTiers)
	if err != nil {
		return domain.PricingRule{}, err
	}
	priorities, err := marshalBlob(rule.PriorityMultipliers)
	if err != nil {
		return domain.PricingRule{}, err
	}
	budgets, err := marshalBlob(rule.BudgetMultipliers)
	if err != nil {
		return domain.PricingRule{}, err
	}
	times, err := marshalBlob(rule.TimeMultipliers)
	if err != nil {
		return domain.PricingRule{}, err
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE pricing_rules
		SET base_credits = $2,
			price_tiers = $3,
			priority_multipliers = $4,
			budget_multipliers = $5,
			time_multipliers = $6,
			is_active = $7,
			updated_at = now()
		WHERE category = $1
		RETURNING `+ruleColumns,
		rule.Category, rule.BaseCredits, tiers, priorities, budgets, times, rule.IsActive)
	return r.scanRule(row)
}

// DeleteRule removes the rule for a category. Returns sql.ErrNoRows when
// the category has no rule.
func (r *Repository) DeleteRule(ctx context.Context, category string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pricing_rules WHERE category = $1`, category)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
