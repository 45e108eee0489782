package upload

import "sync"

type attemptKey struct {
	ownerID  string
	fileName string
}

// registry holds the attempts in flight, one per key.
type registry struct {
	mu      sync.Mutex
	entries map[attemptKey]*attempt
}

func newRegistry() *registry {
	return &registry{entries: make(map[attemptKey]*attempt)}
}

// acquire registers a under its key unless another attempt holds it.
func (r *registry) acquire(a *attempt) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.entries[a.key]; busy {
		return false
	}
	r.entries[a.key] = a
	return true
}

// release removes a's entry. An entry owned by a different attempt is left
// alone.
func (r *registry) release(a *attempt) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[a.key]; ok && cur == a {
		delete(r.entries, a.key)
		return true
	}
	return false
}

func (r *registry) get(k attemptKey) (*attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.entries[k]
	return a, ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
