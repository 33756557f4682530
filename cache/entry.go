package cache

import "time"

// Entry is the stored representation of one cached value.
type Entry struct {
	Value        any
	ExpiresAt    time.Time
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  int64
}

// expired reports whether the entry's TTL has elapsed as of now.
func (e *Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// touch records an access, bumping LastAccessed and AccessCount. Called
// under the owning cache's write lock.
func (e *Entry) touch(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}
