// Package game defines the core domain types for live case sessions.
// It has zero external dependencies.
package game

import (
	"fmt"
	"time"
)

// ClueType enumerates the kinds of clues a round may carry.
type ClueType string

const (
	ClueGeography  ClueType = "geography"
	ClueCulture    ClueType = "culture"
	ClueHistorical ClueType = "historical"
	ClueEconomic   ClueType = "economic"
	ClueVisual     ClueType = "visual"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Clue is a single piece of evidence, disclosed in reveal-order.
type Clue struct {
	ID          string   `json:"id"`
	Type        ClueType `json:"type"`
	Content     string   `json:"content"`
	RevealOrder int      `json:"revealOrder"`
	Points      int      `json:"points"`
}

// Answer is a round's canonical solution.
type Answer struct {
	Location          Coordinate `json:"location"`
	AcceptedLocations []string   `json:"acceptedLocations"`
	SuspectID         string     `json:"suspectId"`
}

// ScoringTable maps a warrant's correctness combination to awarded points.
// Neither may be zero or negative (a wrong-guess penalty).
type ScoringTable struct {
	Both         int `json:"both"`
	LocationOnly int `json:"locationOnly"`
	SuspectOnly  int `json:"suspectOnly"`
	Neither      int `json:"neither"`
}

// Round is one scored phase of a case, with its own clue sequence
// and answer evaluation.
type Round struct {
	Number  int          `json:"number"`
	Clues   []Clue       `json:"clues"`
	Answer  Answer       `json:"answer"`
	Scoring ScoringTable `json:"scoring"`
}

// Case is the authored mystery content. It is immutable once stored.
type Case struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Rounds      []Round   `json:"rounds"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Round returns the round with the given 1-indexed number.
func (c *Case) Round(number int) (*Round, error) {
	if number < 1 || number > len(c.Rounds) {
		return nil, ErrNotFound
	}
	return &c.Rounds[number-1], nil
}

// Validate checks the structural invariants of authored case content:
// at least one round, contiguous 1-indexed round numbers, and per round
// at least one clue with strictly ascending reveal order and
// non-increasing, non-negative point values.
func (c *Case) Validate() error {
	if c.Title == "" {
		return &ValidationError{Reason: "case title is required"}
	}
	if len(c.Rounds) == 0 {
		return &ValidationError{Reason: "case must have at least one round"}
	}
	for i := range c.Rounds {
		r := &c.Rounds[i]
		if r.Number != i+1 {
			return &ValidationError{Reason: fmt.Sprintf("round %d out of order: numbered %d", i+1, r.Number)}
		}
		if err := r.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Round) validate() error {
	if len(r.Clues) == 0 {
		return &ValidationError{Reason: fmt.Sprintf("round %d has no clues", r.Number)}
	}
	if r.Answer.SuspectID == "" && len(r.Answer.AcceptedLocations) == 0 {
		return &ValidationError{Reason: fmt.Sprintf("round %d has no canonical answer", r.Number)}
	}
	prevOrder := 0
	prevPoints := -1
	for _, cl := range r.Clues {
		if cl.Points < 0 {
			return &ValidationError{Reason: fmt.Sprintf("round %d clue %q has negative point value", r.Number, cl.ID)}
		}
		if cl.RevealOrder <= prevOrder {
			return &ValidationError{Reason: fmt.Sprintf("round %d clue %q breaks ascending reveal order", r.Number, cl.ID)}
		}
		if prevPoints >= 0 && cl.Points > prevPoints {
			return &ValidationError{Reason: fmt.Sprintf("round %d clue %q increases point value across reveal order", r.Number, cl.ID)}
		}
		prevOrder = cl.RevealOrder
		prevPoints = cl.Points
	}
	return nil
}

// Team is a participating group within a session. Teams are soft-deactivated
// on leave so their historical scores survive.
type Team struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	JoinOrder int       `json:"joinOrder"`
	Active    bool      `json:"active"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Warrant is a team's formal guess submission for a round. Correctness
// flags are computed at submission time and immutable thereafter.
type Warrant struct {
	ID              string      `json:"id"`
	SessionID       string      `json:"sessionId"`
	TeamID          string      `json:"teamId"`
	Round           int         `json:"round"`
	LocationID      string      `json:"locationId,omitempty"`
	Location        *Coordinate `json:"location,omitempty"`
	SuspectID       string      `json:"suspectId,omitempty"`
	Justifications  int         `json:"justifications"`
	Confidence      int         `json:"confidence"`
	LocationCorrect bool        `json:"locationCorrect"`
	SuspectCorrect  bool        `json:"suspectCorrect"`
	Points          int         `json:"points"`
	SubmittedAt     time.Time   `json:"submittedAt"`
}

// ScoreEventType enumerates ledger entry kinds.
type ScoreEventType string

const (
	EventClueRevealed   ScoreEventType = "clue_revealed"
	EventCorrectGuess   ScoreEventType = "correct_guess"
	EventIncorrectGuess ScoreEventType = "incorrect_guess"
	EventTimeBonus      ScoreEventType = "time_bonus"
)

// ScoreEvent is an append-only ledger entry. A team's total score is
// always the sum of its events, never a separately mutated counter.
type ScoreEvent struct {
	ID          int64          `json:"id"`
	SessionID   string         `json:"sessionId"`
	TeamID      string         `json:"teamId,omitempty"` // empty for session-wide entries
	Round       int            `json:"round"`
	Type        ScoreEventType `json:"type"`
	Points      int            `json:"points"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
