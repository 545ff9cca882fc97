package quota

// bucket maps identities to their remaining budget in one window.
//
// Only identities in deficit are stored. A missing key means the identity
// has the full limit available; every read goes through get so that rule is
// applied in one place.
//
// bucket is not safe for concurrent use; Engine serialises access.
type bucket[K comparable] struct {
	window  Window
	limit   float64
	entries map[K]float64
}

// newBucket creates a bucket, or returns nil if the window is disabled.
func newBucket[K comparable](window Window, limit float64) *bucket[K] {
	if limit <= 0 {
		return nil
	}
	return &bucket[K]{
		window:  window,
		limit:   limit,
		entries: make(map[K]float64),
	}
}

// get returns the remaining budget for key and whether an entry exists.
func (b *bucket[K]) get(key K) (float64, bool) {
	if v, ok := b.entries[key]; ok {
		return v, true
	}
	return b.limit, false
}

// charge subtracts cost from the key's budget, starting from a full bucket
// for unseen keys. There is no floor.
func (b *bucket[K]) charge(key K, cost float64) {
	v, _ := b.get(key)
	b.entries[key] = v - cost
}

// exhausted reports whether the key has a stored entry at or below zero.
func (b *bucket[K]) exhausted(key K) bool {
	v, ok := b.entries[key]
	return ok && v <= 0
}

// refillRate returns the budget, in seconds, restored per elapsed second.
func (b *bucket[K]) refillRate() float64 {
	return b.limit / b.window.Period().Seconds()
}

// refill adds the budget earned over elapsedSeconds to every entry and
// deletes entries that reach the limit. It returns the number of deleted
// entries.
func (b *bucket[K]) refill(elapsedSeconds float64) int {
	if elapsedSeconds <= 0 {
		return 0
	}
	delta := b.refillRate() * elapsedSeconds

	deleted := 0
	for key, v := range b.entries {
		v += delta
		if v >= b.limit {
			delete(b.entries, key)
			deleted++
			continue
		}
		b.entries[key] = v
	}
	return deleted
}

// len returns the number of identities in deficit.
func (b *bucket[K]) len() int {
	return len(b.entries)
}
