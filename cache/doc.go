// Package cache provides the result store backing pipeline.CachingPipeline
// compositions.
//
// Entries carry creation/access bookkeeping ([Entry]) so that, once a
// [Policy]'s MaxSize is reached, [MemoryCache] can evict a genuine victim
// under LRU, LFU, FIFO, or nearest-to-expiry ("TTL") policy rather than
// relying solely on lazy expiry to bound memory.
package cache
