// Package limiter bounds an amount aggregate over a sliding time window. It is
// shared by the token transfer controller (per-sender sell/transfer volume)
// and the treasury allocator (global withdrawal volume).
package limiter

import (
	"errors"
	"math/big"
	"time"
)

var (
	// ErrLimitExceeded signals that admitting the new entry would push the
	// live-window total over the configured cap.
	ErrLimitExceeded = errors.New("limiter: window cap exceeded")
	// ErrHistoryOverflow signals that the history is full even after pruning
	// by age. This indicates an implausible window/cap configuration and is
	// surfaced loudly instead of silently evicting valid entries.
	ErrHistoryOverflow = errors.New("limiter: history capacity exhausted")
)

// MaxEntries bounds the retained history purely for resource bounding. Pruning
// by age always happens first, so this cap never causes a false accept.
const MaxEntries = 256

// Entry records a single amount at a point in time.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Amount    *big.Int  `json:"amount"`
}

// History is an ordered (oldest first) sequence of entries.
type History []Entry

// Clone deep-copies the history including amount values.
func (h History) Clone() History {
	if len(h) == 0 {
		return History{}
	}
	clone := make(History, len(h))
	for i, entry := range h {
		clone[i] = Entry{Timestamp: entry.Timestamp}
		if entry.Amount != nil {
			clone[i].Amount = new(big.Int).Set(entry.Amount)
		} else {
			clone[i].Amount = big.NewInt(0)
		}
	}
	return clone
}

// prune drops entries whose age at `now` exceeds the window.
func prune(history History, now time.Time, window time.Duration) History {
	cutoff := now.Add(-window)
	kept := history[:0]
	for _, entry := range history {
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// WindowTotal sums the amounts of entries still inside the window at `now`.
func WindowTotal(history History, now time.Time, window time.Duration) *big.Int {
	total := big.NewInt(0)
	cutoff := now.Add(-window)
	for _, entry := range history {
		if entry.Amount == nil || !entry.Timestamp.After(cutoff) {
			continue
		}
		total.Add(total, entry.Amount)
	}
	return total
}

// RecordAndCheck prunes expired entries, verifies the live total plus the new
// amount stays within cap, and appends the new entry. The updated history is
// returned on success; on failure the input history is returned unchanged and
// no entry is recorded.
func RecordAndCheck(history History, now time.Time, window time.Duration, cap *big.Int, amount *big.Int) (History, error) {
	if amount == nil {
		amount = big.NewInt(0)
	}
	live := prune(history.Clone(), now, window)
	total := big.NewInt(0)
	for _, entry := range live {
		if entry.Amount != nil {
			total.Add(total, entry.Amount)
		}
	}
	if cap != nil && cap.Sign() >= 0 {
		if new(big.Int).Add(total, amount).Cmp(cap) > 0 {
			return history, ErrLimitExceeded
		}
	}
	if len(live) >= MaxEntries {
		return history, ErrHistoryOverflow
	}
	live = append(live, Entry{Timestamp: now, Amount: new(big.Int).Set(amount)})
	return live, nil
}
