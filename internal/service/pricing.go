// Package service contains the business logic layer.
//
// This file implements the pricing service: credit-cost quotes for the
// booking flow and the administrative rule CRUD surface with its audit
// trail.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/averline/concierge/internal/archive"
	"github.com/averline/concierge/internal/domain"
	"github.com/averline/concierge/internal/email"
	"github.com/averline/concierge/internal/metrics"
	"github.com/averline/concierge/internal/pricing"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// PricingService defines the cost-query and administrative operations over
// pricing rules.
type PricingService interface {
	// Quote converts a pricing context into a full credit-cost breakdown.
	// It never fails: missing rules fall back to built-in defaults and a
	// degraded rule cache serves stale data (§ graceful degradation).
	Quote(ctx context.Context, pctx domain.PricingContext) domain.PricingBreakdown

	// CreditCost is the convenience form of Quote returning only the final
	// integer credit cost.
	CreditCost(ctx context.Context, pctx domain.PricingContext) int64

	// ListRules returns every rule, active and inactive.
	ListRules(ctx context.Context) ([]domain.PricingRule, error)

	// GetRule returns the rule for a category regardless of active flag.
	GetRule(ctx context.Context, category string) (*domain.PricingRule, error)

	// CreateRule creates a new rule, records a history entry, and
	// invalidates the rule cache.
	CreateRule(ctx context.Context, params RuleParams) (*domain.PricingRule, error)

	// UpdateRule replaces a rule's configuration, records a history entry
	// with previous and new values, and invalidates the rule cache.
	UpdateRule(ctx context.Context, params RuleParams) (*domain.PricingRule, error)

	// DeleteRule removes a rule, records a history entry, and invalidates
	// the rule cache.
	DeleteRule(ctx context.Context, category, actor string) error

	// RuleHistory returns the audit history for a category, newest first.
	RuleHistory(ctx context.Context, category string, limit int) ([]domain.RuleChange, error)
}

// RuleStore defines the persistence operations the pricing service needs.
// Implemented by *repository.Repository; faked in tests.
type RuleStore interface {
	ListActiveRules(ctx context.Context) (map[string]domain.PricingRule, error)
	ListRules(ctx context.Context) ([]domain.PricingRule, error)
	GetRuleByCategory(ctx context.Context, category string) (domain.PricingRule, error)
	CreateRule(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error)
	UpdateRule(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error)
	DeleteRule(ctx context.Context, category string) error
	InsertRuleChange(ctx context.Context, change domain.RuleChange) error
	ListRuleChanges(ctx context.Context, category string, limit int) ([]domain.RuleChange, error)
}

// RuleParams carries an administrative rule write.
type RuleParams struct {
	Category            string
	BaseCredits         float64
	PriceTiers          []domain.PriceTier
	PriorityMultipliers map[string]float64
	BudgetMultipliers   []domain.BudgetThreshold
	TimeMultipliers     *domain.TimeMultipliers
	IsActive            bool
	Actor               string
}

// =============================================================================
// Implementation
// =============================================================================

type pricingService struct {
	store    RuleStore
	cache    *pricing.RuleCache
	archiver archive.Archiver
	email    email.EmailService // nil when notifications are disabled
	notifyTo []string
	logger   *slog.Logger
}

// NewPricingService creates a new PricingService. The email service may be
// nil to disable rule-change notifications.
func NewPricingService(
	store RuleStore,
	cache *pricing.RuleCache,
	archiver archive.Archiver,
	emailService email.EmailService,
	notifyTo []string,
	logger *slog.Logger,
) PricingService {
	return &pricingService{
		store:    store,
		cache:    cache,
		archiver: archiver,
		email:    emailService,
		notifyTo: notifyTo,
		logger:   logger,
	}
}

// Quote converts a pricing context into a credit-cost breakdown.
func (s *pricingService) Quote(ctx context.Context, pctx domain.PricingContext) domain.PricingBreakdown {
	rule, origin := s.cache.Rule(ctx, pctx.Category)
	bd := pricing.Calculate(pctx, rule)

	metrics.PricingQuotes.WithLabelValues(pctx.Category, string(origin)).Inc()
	s.logger.Debug("credit cost calculated",
		"category", pctx.Category,
		"priority", pctx.Priority,
		"origin", string(origin),
		"final_cost", bd.FinalCost,
	)

	return bd
}

// CreditCost returns only the final credit cost for a context.
func (s *pricingService) CreditCost(ctx context.Context, pctx domain.PricingContext) int64 {
	return s.Quote(ctx, pctx).FinalCost
}

// ListRules returns every rule, active and inactive.
func (s *pricingService) ListRules(ctx context.Context) ([]domain.PricingRule, error) {
	const op = "pricing.list_rules"

	rules, err := s.store.ListRules(ctx)
	if err != nil {
		s.logger.Error("failed to list pricing rules", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to list pricing rules")
	}
	return rules, nil
}

// GetRule returns the rule for a category.
func (s *pricingService) GetRule(ctx context.Context, category string) (*domain.PricingRule, error) {
	const op = "pricing.get_rule"

	rule, err := s.store.GetRuleByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "pricing rule", category)
		}
		s.logger.Error("failed to get pricing rule", "error", err, "op", op, "category", category)
		return nil, domain.Internal(err, op, "Failed to retrieve pricing rule")
	}
	return &rule, nil
}

// CreateRule creates a new rule with an audit history entry.
func (s *pricingService) CreateRule(ctx context.Context, params RuleParams) (*domain.PricingRule, error) {
	const op = "pricing.create_rule"

	rule := params.toRule()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if params.Actor == "" {
		return nil, domain.Invalid(op, "Acting administrator is required")
	}

	if _, err := s.store.GetRuleByCategory(ctx, rule.Category); err == nil {
		return nil, domain.Conflict(op, "A pricing rule already exists for this category")
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed to check for existing rule", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to create pricing rule")
	}

	created, err := s.store.CreateRule(ctx, rule)
	if err != nil {
		s.logger.Error("failed to create pricing rule", "error", err, "op", op, "category", rule.Category)
		return nil, domain.Internal(err, op, "Failed to create pricing rule")
	}

	s.recordChange(ctx, domain.RuleActionCreate, nil, &created, params.Actor)
	s.logger.Info("pricing rule created", "category", created.Category, "actor", params.Actor)

	return &created, nil
}

// UpdateRule replaces a rule's configuration with an audit history entry.
func (s *pricingService) UpdateRule(ctx context.Context, params RuleParams) (*domain.PricingRule, error) {
	const op = "pricing.update_rule"

	rule := params.toRule()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if params.Actor == "" {
		return nil, domain.Invalid(op, "Acting administrator is required")
	}

	previous, err := s.store.GetRuleByCategory(ctx, rule.Category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "pricing rule", rule.Category)
		}
		s.logger.Error("failed to load rule for update", "error", err, "op", op, "category", rule.Category)
		return nil, domain.Internal(err, op, "Failed to update pricing rule")
	}

	updated, err := s.store.UpdateRule(ctx, rule)
	if err != nil {
		s.logger.Error("failed to update pricing rule", "error", err, "op", op, "category", rule.Category)
		return nil, domain.Internal(err, op, "Failed to update pricing rule")
	}

	s.recordChange(ctx, domain.RuleActionUpdate, &previous, &updated, params.Actor)
	s.logger.Info("pricing rule updated", "category", updated.Category, "actor", params.Actor)

	return &updated, nil
}

// DeleteRule removes a rule with an audit history entry.
func (s *pricingService) DeleteRule(ctx context.Context, category, actor string) error {
	const op = "pricing.delete_rule"

	category = strings.TrimSpace(category)
	if category == "" {
		return domain.Invalid(op, "Category is required")
	}
	if actor == "" {
		return domain.Invalid(op, "Acting administrator is required")
	}

	previous, err := s.store.GetRuleByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "pricing rule", category)
		}
		s.logger.Error("failed to load rule for delete", "error", err, "op", op, "category", category)
		return domain.Internal(err, op, "Failed to delete pricing rule")
	}

	if err := s.store.DeleteRule(ctx, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "pricing rule", category)
		}
		s.logger.Error("failed to delete pricing rule", "error", err, "op", op, "category", category)
		return domain.Internal(err, op, "Failed to delete pricing rule")
	}

	s.recordChange(ctx, domain.RuleActionDelete, &previous, nil, actor)
	s.logger.Info("pricing rule deleted", "category", category, "actor", actor)

	return nil
}

// RuleHistory returns the audit history for a category, newest first.
func (s *pricingService) RuleHistory(ctx context.Context, category string, limit int) ([]domain.RuleChange, error) {
	const op = "pricing.rule_history"

	changes, err := s.store.ListRuleChanges(ctx, category, limit)
	if err != nil {
		s.logger.Error("failed to list rule history", "error", err, "op", op, "category", category)
		return nil, domain.Internal(err, op, "Failed to retrieve rule history")
	}
	return changes, nil
}

// recordChange writes the audit history entry for a successful mutation,
// archives a snapshot, notifies administrators, and invalidates the rule
// cache. The history write is the only step whose failure is surfaced in
// logs at error level; snapshot and email delivery are best-effort.
func (s *pricingService) recordChange(ctx context.Context, action string, previous, next *domain.PricingRule, actor string) {
	change := domain.RuleChange{
		ID:        uuid.New(),
		Action:    action,
		ChangedBy: actor,
		CreatedAt: time.Now().UTC(),
	}
	if previous != nil {
		change.RuleID = previous.ID
		change.Category = previous.Category
		change.Previous = marshalRule(previous)
	}
	if next != nil {
		change.RuleID = next.ID
		change.Category = next.Category
		change.New = marshalRule(next)
	}

	if err := s.store.InsertRuleChange(ctx, change); err != nil {
		s.logger.Error("failed to record rule change history",
			"error", err,
			"action", action,
			"category", change.Category,
		)
	}

	if s.archiver != nil {
		snapshot, err := json.Marshal(change)
		if err == nil {
			key := archive.SnapshotKey(change.Category, change.ID, change.CreatedAt)
			if err := s.archiver.Put(ctx, key, snapshot); err != nil {
				s.logger.Warn("failed to archive rule change snapshot", "error", err, "key", key)
			}
		}
	}

	if s.email != nil && len(s.notifyTo) > 0 {
		if err := s.email.SendRuleChangeNotice(ctx, s.notifyTo, change.Category, action, actor); err != nil {
			s.logger.Warn("failed to send rule change notice", "error", err, "category", change.Category)
		}
	}

	// Invalidate last so the next quote re-reads the store and can never
	// observe pre-change pricing.
	s.cache.Invalidate()
	metrics.RuleMutations.WithLabelValues(action).Inc()
}

func (p RuleParams) toRule() domain.PricingRule {
	return domain.PricingRule{
		Category:            strings.TrimSpace(p.Category),
		BaseCredits:         p.BaseCredits,
		PriceTiers:          p.PriceTiers,
		PriorityMultipliers: p.PriorityMultipliers,
		BudgetMultipliers:   p.BudgetMultipliers,
		TimeMultipliers:     p.TimeMultipliers,
		IsActive:            p.IsActive,
	}
}

func marshalRule(rule *domain.PricingRule) json.RawMessage {
	raw, err := json.Marshal(rule)
	if err != nil {
		return nil
	}
	return raw
}
