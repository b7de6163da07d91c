package editor

import "sync"

// SessionRegistry enforces one live editor per page. Start acquires a
// slot before any setup runs; a second Start against a held registry
// reports the session as already active instead of double-wiring.
type SessionRegistry struct {
	mu     sync.Mutex
	holder string
	held   bool
}

// NewSessionRegistry creates an empty registry. Most callers share one
// registry per page context; tests create their own.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{}
}

// TryAcquire claims the registry for owner. Returns false when some
// session already holds it, including the same owner.
func (r *SessionRegistry) TryAcquire(owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held {
		return false
	}
	r.held = true
	r.holder = owner
	return true
}

// Release frees the registry if owner holds it. Releasing a slot held by
// someone else, or not held at all, is a no-op.
func (r *SessionRegistry) Release(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held && r.holder == owner {
		r.held = false
		r.holder = ""
	}
}

// Held reports whether any session currently holds the registry.
func (r *SessionRegistry) Held() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held
}
