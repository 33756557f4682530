package pipeline

import (
	"context"

	"github.com/flowforge/pipeline/cache"
	"github.com/flowforge/pipeline/pipectx"
	"golang.org/x/sync/singleflight"
)

// CachingPipeline wraps an inner Pipeline with a named cache. Unlike the
// Executor's own best-effort cache check (step 2 of Execute, which does
// not guarantee at-most-one concurrent compute per key), CachingPipeline
// uses a key-scoped singleflight group so concurrent callers for the
// same key share one in-flight computation.
type CachingPipeline[In, Out any] struct {
	inner  Pipeline[In, Out]
	keyFn  func(In) string
	cache  cache.Cache
	policy cache.Policy
	group  singleflight.Group

	// RefreshOnAccess extends a hit's TTL on every access.
	RefreshOnAccess bool

	name string
}

// NewCachingPipeline wraps inner with a cache keyed by keyFn.
func NewCachingPipeline[In, Out any](inner Pipeline[In, Out], keyFn func(In) string, c cache.Cache, policy cache.Policy) *CachingPipeline[In, Out] {
	return &CachingPipeline[In, Out]{
		inner:  inner,
		keyFn:  keyFn,
		cache:  c,
		policy: policy,
		name:   inner.Name() + " (Cached)",
	}
}

func (c *CachingPipeline[In, Out]) Execute(ctx context.Context, input In, parent *pipectx.Context) (Out, error) {
	var zero Out
	key := c.keyFn(input)

	if v, hit := c.cache.Get(ctx, key); hit {
		if out, ok := v.(Out); ok {
			if c.RefreshOnAccess {
				c.cache.Set(ctx, key, out, c.policy.EffectiveTTL(0))
			}
			return out, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Double-check: another caller may have populated the cache
		// while we were queued behind the singleflight lock.
		if cached, hit := c.cache.Get(ctx, key); hit {
			return cached, nil
		}

		out, err := c.inner.Execute(ctx, input, parent)
		if err != nil {
			return nil, err
		}
		if c.policy.ShouldCache() {
			c.cache.Set(ctx, key, out, c.policy.EffectiveTTL(0))
		}
		return out, nil
	})

	if err != nil {
		return zero, err
	}
	out, _ := v.(Out)
	return out, nil
}

func (c *CachingPipeline[In, Out]) Name() string { return c.name }
