package sessions

import "sync"

// RoundTracker holds the identifier of the round in progress. A round that
// has started but not yet been assigned a nonzero id reports as absent.
type RoundTracker struct {
	mu      sync.RWMutex
	roundID int
}

func NewRoundTracker() *RoundTracker { return &RoundTracker{} }

func (t *RoundTracker) StartRound(id int) {
	t.mu.Lock()
	t.roundID = id
	t.mu.Unlock()
}

func (t *RoundTracker) EndRound() {
	t.mu.Lock()
	t.roundID = 0
	t.mu.Unlock()
}

func (t *RoundTracker) CurrentRoundID() (int, bool) {
	t.mu.RLock()
	id := t.roundID
	t.mu.RUnlock()
	if id == 0 {
		return 0, false
	}
	return id, true
}
