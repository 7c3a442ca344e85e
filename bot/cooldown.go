package bot

import (
	"sync"
	"time"
)

// CooldownTracker suppresses repeated gain events for the same user inside
// the cooldown window. Entries expire lazily on the next check and a periodic
// sweep drops the ones nobody checks again.
type CooldownTracker struct {
	mu      sync.Mutex
	window  time.Duration
	expires map[int64]time.Time
}

// NewCooldownTracker creates a tracker with the given window
func NewCooldownTracker(window time.Duration) *CooldownTracker {
	return &CooldownTracker{
		window:  window,
		expires: make(map[int64]time.Time),
	}
}

// TryAcquire reports whether a gain event for the user may be counted now.
// A successful acquire opens a new cooldown window for the user.
func (t *CooldownTracker) TryAcquire(discordID int64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if expiry, ok := t.expires[discordID]; ok && now.Before(expiry) {
		return false
	}

	t.expires[discordID] = now.Add(t.window)
	return true
}

// Sweep drops expired entries
func (t *CooldownTracker) Sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, expiry := range t.expires {
		if !now.Before(expiry) {
			delete(t.expires, id)
		}
	}
}

// Len returns the number of live entries, expired or not
func (t *CooldownTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.expires)
}
