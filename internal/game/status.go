package game

// SessionStatus represents the lifecycle state of a live session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

func (s SessionStatus) String() string {
	return string(s)
}

// Terminal reports whether no further mutation is accepted.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted
}

// CanTransitionTo checks if a transition from the current status to the
// target status is valid.
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	validTransitions := map[SessionStatus][]SessionStatus{
		StatusWaiting:   {StatusActive, StatusCompleted},
		StatusActive:    {StatusPaused, StatusCompleted},
		StatusPaused:    {StatusActive, StatusCompleted},
		StatusCompleted: {},
	}

	for _, st := range validTransitions[s] {
		if st == target {
			return true
		}
	}
	return false
}
