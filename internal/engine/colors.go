package engine

import "sync"

// ColorRegistry is the host's record of claimed colors. Claims are never
// released for the lifetime of the session.
type ColorRegistry struct {
	mu      sync.Mutex
	claimed map[Color]bool
}

func NewColorRegistry() *ColorRegistry {
	return &ColorRegistry{claimed: map[Color]bool{}}
}

// TryClaim accepts c if nobody holds it yet. The check and the insert happen
// under one lock.
func (r *ColorRegistry) TryClaim(c Color) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claimed[c] {
		return false
	}
	r.claimed[c] = true
	return true
}

func (r *ColorRegistry) Claimed(c Color) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimed[c]
}

func (r *ColorRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claimed)
}
