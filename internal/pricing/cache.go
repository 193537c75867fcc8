package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/averline/concierge/internal/domain"
	"github.com/averline/concierge/internal/metrics"
)

// Cache defaults. A hung store read must not block cost calculation, so
// refreshes run under their own timeout and fall back to the stale path.
const (
	DefaultCacheTTL       = 5 * time.Minute
	DefaultRefreshTimeout = 5 * time.Second
)

// Origin reports where a cache read was served from, so callers and tests
// can observe degradation without relying on logs.
type Origin string

const (
	// OriginLive: the backing store was read successfully on this call.
	OriginLive Origin = "live"
	// OriginCached: served from a cache still inside its TTL window.
	OriginCached Origin = "cached"
	// OriginStale: the TTL had elapsed and the store read failed; the
	// previous cache contents were served instead.
	OriginStale Origin = "stale"
	// OriginEmpty: the store read failed and nothing was cached. Callers
	// fall through to built-in defaults.
	OriginEmpty Origin = "empty"
)

// RuleSource supplies the set of active pricing rules, keyed by category.
// Implemented by the repository; faked in tests.
type RuleSource interface {
	ListActiveRules(ctx context.Context) (map[string]domain.PricingRule, error)
}

// CacheConfig tunes the rule cache. Zero values take the defaults above.
type CacheConfig struct {
	TTL            time.Duration
	RefreshTimeout time.Duration
}

// RuleCache holds the active pricing rules in memory with a fixed TTL.
// The cached map is only ever replaced wholesale, never partially updated,
// so readers can never observe a half-refreshed rule set. Reads never
// return an error: a failed refresh degrades to the stale cache (or to an
// empty map on a cold start), because pricing must always resolve to some
// number for the booking flow to proceed.
type RuleCache struct {
	source         RuleSource
	ttl            time.Duration
	refreshTimeout time.Duration
	logger         *slog.Logger
	clock          func() time.Time

	mu          sync.RWMutex
	rules       map[string]domain.PricingRule
	refreshedAt time.Time
}

// NewRuleCache creates a rule cache over the given source.
func NewRuleCache(source RuleSource, cfg CacheConfig, logger *slog.Logger) *RuleCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	return &RuleCache{
		source:         source,
		ttl:            cfg.TTL,
		refreshTimeout: cfg.RefreshTimeout,
		logger:         logger,
		clock:          time.Now,
	}
}

// Rules returns the active rule set keyed by category, refreshing from the
// backing store when the TTL has elapsed. The returned map is shared and
// must be treated as read-only.
func (c *RuleCache) Rules(ctx context.Context) (map[string]domain.PricingRule, Origin) {
	c.mu.RLock()
	if c.fresh() {
		rules := c.rules
		c.mu.RUnlock()
		return rules, OriginCached
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if c.fresh() {
		return c.rules, OriginCached
	}

	refreshCtx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	rules, err := c.source.ListActiveRules(refreshCtx)
	if err != nil {
		metrics.RuleCacheRefreshes.WithLabelValues("failure").Inc()
		c.logger.Warn("pricing rule refresh failed, serving degraded",
			"error", err,
			"cached_rules", len(c.rules),
		)
		if c.rules != nil {
			return c.rules, OriginStale
		}
		return map[string]domain.PricingRule{}, OriginEmpty
	}

	metrics.RuleCacheRefreshes.WithLabelValues("success").Inc()
	c.rules = rules
	c.refreshedAt = c.clock()
	return c.rules, OriginLive
}

// Rule looks up the active rule for a category through the cache. Returns
// nil when no active rule exists; falling back to built-in defaults is the
// calculator's responsibility, not the cache's.
func (c *RuleCache) Rule(ctx context.Context, category string) (*domain.PricingRule, Origin) {
	rules, origin := c.Rules(ctx)
	rule, ok := rules[category]
	if !ok {
		return nil, origin
	}
	return &rule, origin
}

// Invalidate clears the cache and resets the refresh timestamp so the next
// read goes back to the store. Called after every successful rule
// mutation so stale pricing is never served past an administrative change.
func (c *RuleCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = nil
	c.refreshedAt = time.Time{}
}

// fresh reports whether the cache is populated and inside its TTL window.
// Callers must hold at least a read lock.
func (c *RuleCache) fresh() bool {
	return !c.refreshedAt.IsZero() && c.clock().Sub(c.refreshedAt) < c.ttl
}
