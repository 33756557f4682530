package cache

import "time"

// EvictionPolicy selects which entry to evict when a cache is at MaxSize.
type EvictionPolicy int

const (
	// EvictionLRU evicts the least-recently-accessed entry.
	EvictionLRU EvictionPolicy = iota
	// EvictionLFU evicts the least-frequently-accessed entry (lowest AccessCount).
	EvictionLFU
	// EvictionFIFO evicts the oldest entry by CreatedAt, ignoring access history.
	EvictionFIFO
	// EvictionTTL evicts the entry with the nearest ExpiresAt, i.e. the one
	// closest to expiring naturally.
	EvictionTTL
)

func (p EvictionPolicy) String() string {
	switch p {
	case EvictionLRU:
		return "lru"
	case EvictionLFU:
		return "lfu"
	case EvictionFIFO:
		return "fifo"
	case EvictionTTL:
		return "ttl"
	default:
		return "unknown"
	}
}

// Policy configures caching behavior: default/max TTL and bounded-size
// eviction.
type Policy struct {
	// DefaultTTL is the TTL to use when none is specified.
	// If zero, caching is disabled by default.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Override TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration

	// MaxSize bounds the number of live entries. When a Set would exceed
	// MaxSize, an entry is evicted first according to Eviction. Zero means
	// unbounded.
	MaxSize int

	// Eviction selects the eviction strategy used once MaxSize is reached.
	Eviction EvictionPolicy
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour, MaxSize: 10000, Eviction: LRU.
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
		MaxSize:    10000,
		Eviction:   EvictionLRU,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.DefaultTTL > 0
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
