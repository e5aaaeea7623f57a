package http

import "testing"

func TestSessionHealth(t *testing.T) {
	h := NewSessionHealth(3)
	if h.RecordFailure() || h.RecordFailure() {
		t.Fatal("stale before threshold")
	}
	if !h.RecordFailure() || !h.Stale() {
		t.Fatal("not stale at threshold")
	}
	h.Reset()
	if h.Stale() || h.ConsecutiveErrors() != 0 {
		t.Error("Reset() should clear the streak")
	}

	never := NewSessionHealth(0)
	for i := 0; i < 10; i++ {
		if never.RecordFailure() {
			t.Fatal("zero threshold must never go stale")
		}
	}

	var nilHealth *SessionHealth
	if nilHealth.RecordFailure() || nilHealth.Stale() {
		t.Error("nil tracker must be inert")
	}
}
