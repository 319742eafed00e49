// Package keyspace holds the in-memory string keyspace and the single
// goroutine that owns all reads and writes against it.
package keyspace

// entry is one stored value. expiresAt is an absolute Unix millisecond
// timestamp, consulted only when hasExpiry is set. It is deliberately an
// int64, not a time.Time or float64, so that TTL comparisons never pick
// up floating point drift.
type entry struct {
	value     []byte
	expiresAt int64
	hasExpiry bool
}

// Store is the keyspace itself: a plain map plus the lazy-expiry rule.
// Store is not safe for concurrent use - callers must serialize access
// through a Processor, which is the only client this package expects.
type Store struct {
	data map[string]entry
}

// NewStore returns an empty keyspace.
func NewStore() *Store {
	return &Store{data: make(map[string]entry)}
}

// Set stores value under key. If hasExpiry is true, the key expires at
// expiresAtMillis (an absolute Unix millisecond timestamp); a prior
// expiry on the same key is discarded, matching last-write-wins.
func (s *Store) Set(key string, value []byte, hasExpiry bool, expiresAtMillis int64) {
	s.data[key] = entry{value: value, expiresAt: expiresAtMillis, hasExpiry: hasExpiry}
}

// Get returns the value stored under key and whether it is present.
// A key whose expiry has passed is treated as absent and is deleted from
// the map as a side effect - this is the server's only expiration path,
// there is no background sweep.
func (s *Store) Get(key string, nowMillis int64) ([]byte, bool) {
	e, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if e.hasExpiry && nowMillis >= e.expiresAt {
		delete(s.data, key)
		return nil, false
	}
	return e.value, true
}
