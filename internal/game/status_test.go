package game

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{StatusWaiting, StatusActive, true},
		{StatusWaiting, StatusCompleted, true},
		{StatusWaiting, StatusPaused, false},
		{StatusActive, StatusPaused, true},
		{StatusActive, StatusCompleted, true},
		{StatusActive, StatusWaiting, false},
		{StatusPaused, StatusActive, true},
		{StatusPaused, StatusCompleted, true},
		{StatusPaused, StatusWaiting, false},
		{StatusCompleted, StatusActive, false},
		{StatusCompleted, StatusWaiting, false},
		{StatusCompleted, StatusPaused, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusCompleted.Terminal() {
		t.Error("completed should be terminal")
	}
	for _, s := range []SessionStatus{StatusWaiting, StatusActive, StatusPaused} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
