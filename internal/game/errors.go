package game

import (
	"errors"
	"fmt"
)

// Domain errors. Handlers map these onto HTTP statuses.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrDuplicateWarrant = errors.New("warrant already submitted for this round")
	ErrRevealStalled    = errors.New("clue reveal did not advance")
	ErrRoundNotResolved = errors.New("round has teams that have not submitted a warrant")
)

// InvalidStateError is returned when a command is attempted from a session
// status that does not permit it. It names both so clients can distinguish
// "already done" from "not allowed yet".
type InvalidStateError struct {
	Command string
	Status  SessionStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Command, e.Status)
}

// ValidationError is returned for malformed or missing command fields.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
