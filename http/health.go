package http

import "sync"

// SessionHealth counts consecutive transport failures against the analytics
// endpoint. Once the threshold is reached the session is considered stale
// and the owner may bootstrap a new one. A zero threshold never goes stale.
type SessionHealth struct {
	mu                sync.Mutex
	threshold         int
	consecutiveErrors int
}

// NewSessionHealth creates a tracker that goes stale after threshold failures.
func NewSessionHealth(threshold int) *SessionHealth {
	return &SessionHealth{threshold: threshold}
}

// RecordFailure records one failed item and reports whether the session is now stale.
func (h *SessionHealth) RecordFailure() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.consecutiveErrors++
	return h.threshold > 0 && h.consecutiveErrors >= h.threshold
}

// RecordSuccess clears the failure streak.
func (h *SessionHealth) RecordSuccess() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveErrors = 0
}

// Stale reports whether the failure streak has reached the threshold.
func (h *SessionHealth) Stale() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.threshold > 0 && h.consecutiveErrors >= h.threshold
}

// ConsecutiveErrors returns the current failure streak.
func (h *SessionHealth) ConsecutiveErrors() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveErrors
}

// Reset clears the tracker after a new session was acquired.
func (h *SessionHealth) Reset() {
	h.RecordSuccess()
}
