package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/averline/concierge/internal/domain"
	"github.com/averline/concierge/internal/pricing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuleStore is an in-memory RuleStore for service tests.
type fakeRuleStore struct {
	rules   map[string]domain.PricingRule
	changes []domain.RuleChange

	listErr error
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{rules: make(map[string]domain.PricingRule)}
}

func (f *fakeRuleStore) ListActiveRules(ctx context.Context) (map[string]domain.PricingRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make(map[string]domain.PricingRule)
	for k, v := range f.rules {
		if v.IsActive {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeRuleStore) ListRules(ctx context.Context) ([]domain.PricingRule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.PricingRule, 0, len(f.rules))
	for _, v := range f.rules {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeRuleStore) GetRuleByCategory(ctx context.Context, category string) (domain.PricingRule, error) {
	rule, ok := f.rules[category]
	if !ok {
		return domain.PricingRule{}, sql.ErrNoRows
	}
	return rule, nil
}

func (f *fakeRuleStore) CreateRule(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error) {
	rule.ID = uuid.New()
	rule.CreatedAt = time.Now().UTC()
	rule.UpdatedAt = rule.CreatedAt
	f.rules[rule.Category] = rule
	return rule, nil
}

func (f *fakeRuleStore) UpdateRule(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error) {
	existing, ok := f.rules[rule.Category]
	if !ok {
		return domain.PricingRule{}, sql.ErrNoRows
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()
	f.rules[rule.Category] = rule
	return rule, nil
}

func (f *fakeRuleStore) DeleteRule(ctx context.Context, category string) error {
	if _, ok := f.rules[category]; !ok {
		return sql.ErrNoRows
	}
	delete(f.rules, category)
	return nil
}

func (f *fakeRuleStore) InsertRuleChange(ctx context.Context, change domain.RuleChange) error {
	f.changes = append(f.changes, change)
	return nil
}

func (f *fakeRuleStore) ListRuleChanges(ctx context.Context, category string, limit int) ([]domain.RuleChange, error) {
	var out []domain.RuleChange
	for i := len(f.changes) - 1; i >= 0; i-- {
		if f.changes[i].Category == category {
			out = append(out, f.changes[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func newTestService(store *fakeRuleStore) PricingService {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cache := pricing.NewRuleCache(store, pricing.CacheConfig{}, logger)
	return NewPricingService(store, cache, nil, nil, nil, logger)
}

func validParams() RuleParams {
	return RuleParams{
		Category:    "dining",
		BaseCredits: 2,
		PriorityMultipliers: map[string]float64{
			"standard": 1,
			"urgent":   2,
		},
		IsActive: true,
		Actor:    "ops@example.com",
	}
}

// =============================================================================
// CreateRule
// =============================================================================

func TestPricingService_CreateRule(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	rule, err := svc.CreateRule(context.Background(), validParams())

	require.NoError(t, err)
	assert.Equal(t, "dining", rule.Category)
	assert.NotEqual(t, uuid.Nil, rule.ID)

	// Audit trail records the creation with the new value snapshot.
	require.Len(t, store.changes, 1)
	change := store.changes[0]
	assert.Equal(t, domain.RuleActionCreate, change.Action)
	assert.Equal(t, "ops@example.com", change.ChangedBy)
	assert.Empty(t, change.Previous)
	require.NotEmpty(t, change.New)

	var snapshot domain.PricingRule
	require.NoError(t, json.Unmarshal(change.New, &snapshot))
	assert.Equal(t, float64(2), snapshot.BaseCredits)
}

func TestPricingService_CreateRule_Conflict(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	_, err := svc.CreateRule(context.Background(), validParams())
	require.NoError(t, err)

	_, err = svc.CreateRule(context.Background(), validParams())
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Len(t, store.changes, 1, "failed create must not add history")
}

func TestPricingService_CreateRule_InvalidRule(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	params := validParams()
	params.BaseCredits = -3

	_, err := svc.CreateRule(context.Background(), params)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Empty(t, store.rules)
}

func TestPricingService_CreateRule_RequiresActor(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	params := validParams()
	params.Actor = ""

	_, err := svc.CreateRule(context.Background(), params)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

// =============================================================================
// UpdateRule / DeleteRule
// =============================================================================

func TestPricingService_UpdateRule(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	_, err := svc.CreateRule(context.Background(), validParams())
	require.NoError(t, err)

	params := validParams()
	params.BaseCredits = 5
	updated, err := svc.UpdateRule(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, float64(5), updated.BaseCredits)

	require.Len(t, store.changes, 2)
	change := store.changes[1]
	assert.Equal(t, domain.RuleActionUpdate, change.Action)
	require.NotEmpty(t, change.Previous)
	require.NotEmpty(t, change.New)

	var previous, next domain.PricingRule
	require.NoError(t, json.Unmarshal(change.Previous, &previous))
	require.NoError(t, json.Unmarshal(change.New, &next))
	assert.Equal(t, float64(2), previous.BaseCredits)
	assert.Equal(t, float64(5), next.BaseCredits)
}

func TestPricingService_UpdateRule_NotFound(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	_, err := svc.UpdateRule(context.Background(), validParams())
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestPricingService_DeleteRule(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	_, err := svc.CreateRule(context.Background(), validParams())
	require.NoError(t, err)

	err = svc.DeleteRule(context.Background(), "dining", "ops@example.com")
	require.NoError(t, err)
	assert.Empty(t, store.rules)

	require.Len(t, store.changes, 2)
	change := store.changes[1]
	assert.Equal(t, domain.RuleActionDelete, change.Action)
	assert.NotEmpty(t, change.Previous)
	assert.Empty(t, change.New)
}

func TestPricingService_DeleteRule_NotFound(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	err := svc.DeleteRule(context.Background(), "dining", "ops@example.com")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

// =============================================================================
// Quote
// =============================================================================

func TestPricingService_Quote_UsesStoredRule(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	params := validParams()
	params.BaseCredits = 4
	_, err := svc.CreateRule(context.Background(), params)
	require.NoError(t, err)

	cost := svc.CreditCost(context.Background(), domain.PricingContext{
		Category: "dining",
		Priority: "urgent",
	})
	assert.Equal(t, int64(8), cost)
}

func TestPricingService_Quote_FallsBackToDefaults(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	bd := svc.Quote(context.Background(), domain.PricingContext{Category: "private_aviation"})
	assert.Equal(t, int64(3), bd.FinalCost)
}

// A mutation must invalidate the cache: the very next quote reflects the
// change even though the cache TTL has not elapsed.
func TestPricingService_MutationInvalidatesCache(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	_, err := svc.CreateRule(context.Background(), validParams())
	require.NoError(t, err)

	cost := svc.CreditCost(context.Background(), domain.PricingContext{Category: "dining"})
	require.Equal(t, int64(2), cost)

	params := validParams()
	params.BaseCredits = 7
	_, err = svc.UpdateRule(context.Background(), params)
	require.NoError(t, err)

	cost = svc.CreditCost(context.Background(), domain.PricingContext{Category: "dining"})
	assert.Equal(t, int64(7), cost)
}

func TestPricingService_Quote_InactiveRuleIgnored(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	params := validParams()
	params.Category = "private_aviation"
	params.BaseCredits = 10
	params.IsActive = false
	_, err := svc.CreateRule(context.Background(), params)
	require.NoError(t, err)

	// Inactive rules never reach the cache, so defaults apply.
	bd := svc.Quote(context.Background(), domain.PricingContext{Category: "private_aviation"})
	assert.Equal(t, int64(3), bd.FinalCost)
}

// =============================================================================
// RuleHistory
// =============================================================================

func TestPricingService_RuleHistory(t *testing.T) {
	store := newFakeRuleStore()
	svc := newTestService(store)

	_, err := svc.CreateRule(context.Background(), validParams())
	require.NoError(t, err)

	params := validParams()
	params.BaseCredits = 3
	_, err = svc.UpdateRule(context.Background(), params)
	require.NoError(t, err)

	history, err := svc.RuleHistory(context.Background(), "dining", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Newest first.
	assert.Equal(t, domain.RuleActionUpdate, history[0].Action)
	assert.Equal(t, domain.RuleActionCreate, history[1].Action)
}
