package pricing

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/averline/concierge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRuleSource is a scriptable RuleSource that counts store reads.
type fakeRuleSource struct {
	rules map[string]domain.PricingRule
	err   error
	calls int
}

func (f *fakeRuleSource) ListActiveRules(ctx context.Context) (map[string]domain.PricingRule, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]domain.PricingRule, len(f.rules))
	for k, v := range f.rules {
		out[k] = v
	}
	return out, nil
}

func newTestCache(source *fakeRuleSource) *RuleCache {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewRuleCache(source, CacheConfig{TTL: 5 * time.Minute}, logger)
}

func TestRuleCache_FirstReadHitsStore(t *testing.T) {
	source := &fakeRuleSource{rules: map[string]domain.PricingRule{
		"dining": {Category: "dining", BaseCredits: 1, IsActive: true},
	}}
	cache := newTestCache(source)

	rules, origin := cache.Rules(context.Background())

	assert.Equal(t, OriginLive, origin)
	assert.Equal(t, 1, source.calls)
	assert.Len(t, rules, 1)
}

func TestRuleCache_ServesCachedInsideTTL(t *testing.T) {
	source := &fakeRuleSource{rules: map[string]domain.PricingRule{
		"dining": {Category: "dining", BaseCredits: 1, IsActive: true},
	}}
	cache := newTestCache(source)

	_, origin := cache.Rules(context.Background())
	require.Equal(t, OriginLive, origin)

	for i := 0; i < 10; i++ {
		_, origin = cache.Rules(context.Background())
		assert.Equal(t, OriginCached, origin)
	}
	assert.Equal(t, 1, source.calls)
}

func TestRuleCache_RefreshesAfterTTL(t *testing.T) {
	source := &fakeRuleSource{rules: map[string]domain.PricingRule{
		"dining": {Category: "dining", BaseCredits: 1, IsActive: true},
	}}
	cache := newTestCache(source)

	// Injected clock so the test controls TTL expiry.
	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, origin := cache.Rules(context.Background())
	require.Equal(t, OriginLive, origin)

	now = now.Add(4 * time.Minute)
	_, origin = cache.Rules(context.Background())
	assert.Equal(t, OriginCached, origin)

	now = now.Add(2 * time.Minute)
	_, origin = cache.Rules(context.Background())
	assert.Equal(t, OriginLive, origin)
	assert.Equal(t, 2, source.calls)
}

func TestRuleCache_ServesStaleOnRefreshFailure(t *testing.T) {
	source := &fakeRuleSource{rules: map[string]domain.PricingRule{
		"dining": {Category: "dining", BaseCredits: 1, IsActive: true},
	}}
	cache := newTestCache(source)

	now := time.Now()
	cache.clock = func() time.Time { return now }

	_, origin := cache.Rules(context.Background())
	require.Equal(t, OriginLive, origin)

	// Store goes down, TTL expires.
	source.err = errors.New("connection refused")
	now = now.Add(10 * time.Minute)

	rules, origin := cache.Rules(context.Background())
	assert.Equal(t, OriginStale, origin)
	assert.Len(t, rules, 1, "stale cache contents should still be served")
}

func TestRuleCache_EmptyOnColdStartFailure(t *testing.T) {
	source := &fakeRuleSource{err: errors.New("connection refused")}
	cache := newTestCache(source)

	rules, origin := cache.Rules(context.Background())

	assert.Equal(t, OriginEmpty, origin)
	assert.NotNil(t, rules)
	assert.Empty(t, rules)
}

func TestRuleCache_InvalidateForcesFreshRead(t *testing.T) {
	source := &fakeRuleSource{rules: map[string]domain.PricingRule{
		"dining": {Category: "dining", BaseCredits: 1, IsActive: true},
	}}
	cache := newTestCache(source)

	rule, origin := cache.Rule(context.Background(), "dining")
	require.Equal(t, OriginLive, origin)
	require.NotNil(t, rule)
	assert.Equal(t, float64(1), rule.BaseCredits)

	// An admin raises the base cost. The very next read must see it.
	source.rules["dining"] = domain.PricingRule{Category: "dining", BaseCredits: 5, IsActive: true}
	cache.Invalidate()

	rule, origin = cache.Rule(context.Background(), "dining")
	assert.Equal(t, OriginLive, origin)
	require.NotNil(t, rule)
	assert.Equal(t, float64(5), rule.BaseCredits)
	assert.Equal(t, 2, source.calls)
}

func TestRuleCache_RuleMissingCategory(t *testing.T) {
	source := &fakeRuleSource{rules: map[string]domain.PricingRule{}}
	cache := newTestCache(source)

	rule, origin := cache.Rule(context.Background(), "yacht_charter")

	assert.Nil(t, rule)
	assert.Equal(t, OriginLive, origin)
}
