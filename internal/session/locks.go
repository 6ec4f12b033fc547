package session

import "sync"

type lockKey struct {
	userID string
	deckID string
}

// LockRegistry hands out one mutex per (user, deck) pair. Locks are created
// lazily and kept for the life of the process; the map is bounded by the
// number of active user-deck pairs. Every handler that reads-then-writes a
// session must hold the pair's lock for the whole sequence.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[lockKey]*sync.Mutex)}
}

// Get returns the mutex for a (user, deck) pair, creating it on first use.
// Callers for the same pair always receive the same mutex.
func (r *LockRegistry) Get(userID, deckID string) *sync.Mutex {
	key := lockKey{userID: userID, deckID: deckID}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}
