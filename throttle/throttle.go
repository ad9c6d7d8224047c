// Package throttle suppresses a user asking the same question over and over.
package throttle

import (
	"sync"

	"tanyabot/utils"
)

// DefaultThreshold lets a query through twice; the third identical one is suppressed.
const DefaultThreshold = 2

type key struct {
	user  string
	query string
}

// Throttle counts (user, normalized query) pairs for the life of the process.
// Counts are never decremented.
type Throttle struct {
	mu        sync.Mutex
	counts    map[key]int
	threshold int
}

func New(threshold int) *Throttle {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Throttle{counts: make(map[key]int), threshold: threshold}
}

// CheckAndIncrement counts this occurrence and reports whether the pair has
// now been seen more than threshold times.
func (t *Throttle) CheckAndIncrement(userID, query string) bool {
	k := key{user: userID, query: utils.NormalizeQuery(query)}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[k]++
	return t.counts[k] > t.threshold
}

// Count returns how often the pair has been seen.
func (t *Throttle) Count(userID, query string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[key{user: userID, query: utils.NormalizeQuery(query)}]
}

// Len returns the number of tracked pairs.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts)
}
