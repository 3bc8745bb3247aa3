package trail

import "sync"

// History is an ordered, append-only container of Transactions. It is safe
// for concurrent use and is deliberately a shared handle: several clients,
// or a client and an outside inspector, may hold the same *History, and
// Truncate empties it in place so every holder observes the reset.
type History struct {
	mu      sync.RWMutex
	entries []Transaction
}

// NewHistory returns an empty history.
func NewHistory() *History { return &History{} }

// Append adds a completed transaction at the end. Appends are serialized; an
// entry is either fully visible to readers or not visible at all.
func (h *History) Append(tx Transaction) {
	h.mu.Lock()
	h.entries = append(h.entries, tx)
	h.mu.Unlock()
}

// Len reports the number of recorded transactions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Snapshot returns a copy of the entries in dispatch order. Mutating the
// returned slice does not affect the history.
func (h *History) Snapshot() []Transaction {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Transaction, len(h.entries))
	copy(out, h.entries)
	return out
}

// Last returns the most recently appended transaction.
func (h *History) Last() (Transaction, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return Transaction{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// At returns the i-th transaction in dispatch order.
func (h *History) At(i int) (Transaction, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.entries) {
		return Transaction{}, false
	}
	return h.entries[i], true
}

// Truncate removes all entries while keeping the backing handle, so external
// holders of the same *History see it empty rather than stale.
func (h *History) Truncate() {
	h.mu.Lock()
	h.entries = h.entries[:0]
	h.mu.Unlock()
}
