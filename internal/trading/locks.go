package trading

import "sync"

// keyMutex serializes work per string key. The per-key mutexes are retained
// for the life of the process; cardinality is bounded by the number of
// distinct (owner, symbol) pairs seen, which is small for this workload.
type keyMutex struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{keys: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.keys[key]
	if !ok {
		m = new(sync.Mutex)
		k.keys[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
