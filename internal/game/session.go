package game

import "time"

// Settings holds the configurable parameters for one session.
type Settings struct {
	// MaxRounds caps how many of the case's rounds are played; 0 means all.
	MaxRounds int `json:"maxRounds"`
	// RoundMinutes is the wall-clock limit per round; 0 disables the timer.
	RoundMinutes  int  `json:"roundMinutes"`
	AllowLateJoin bool `json:"allowLateJoin"`

	// ScoringStrategy selects how warrants are scored: "table" uses the
	// round's per-combination table, "distance" decays with great-circle
	// distance from the canonical location.
	ScoringStrategy     string  `json:"scoringStrategy"`
	DistanceThresholdKm float64 `json:"distanceThresholdKm"`
	DistanceMaxPoints   int     `json:"distanceMaxPoints"`
	DistanceScaleKm     float64 `json:"distanceScaleKm"`

	// WrongGuessPenalty is subtracted when a warrant misses on both
	// location and suspect.
	WrongGuessPenalty int `json:"wrongGuessPenalty"`
	// TimeBonusPoints is awarded on a fully correct warrant submitted with
	// more than half the round time remaining; 0 disables it.
	TimeBonusPoints int `json:"timeBonusPoints"`
	// RoundMultipliers scales warrant points per round number; missing
	// entries default to 1.
	RoundMultipliers []float64 `json:"roundMultipliers,omitempty"`
}

// DefaultSettings returns the settings applied when a session is created
// without overrides.
func DefaultSettings() Settings {
	return Settings{
		RoundMinutes:        15,
		AllowLateJoin:       true,
		ScoringStrategy:     ScoringStrategyTable,
		DistanceThresholdKm: 50,
		DistanceMaxPoints:   300,
		DistanceScaleKm:     100,
	}
}

// Normalized fills in defaults for fields the caller left unset so a
// partial override cannot produce a session that scores every warrant
// at zero.
func (s Settings) Normalized() Settings {
	def := DefaultSettings()
	if s.ScoringStrategy == "" {
		s.ScoringStrategy = def.ScoringStrategy
	}
	if s.DistanceThresholdKm <= 0 {
		s.DistanceThresholdKm = def.DistanceThresholdKm
	}
	if s.DistanceMaxPoints <= 0 {
		s.DistanceMaxPoints = def.DistanceMaxPoints
	}
	if s.DistanceScaleKm <= 0 {
		s.DistanceScaleKm = def.DistanceScaleKm
	}
	return s
}

// Multiplier returns the point multiplier for the given 1-indexed round.
func (s Settings) Multiplier(round int) float64 {
	if round < 1 || round > len(s.RoundMultipliers) {
		return 1
	}
	m := s.RoundMultipliers[round-1]
	if m <= 0 {
		return 1
	}
	return m
}

// Session is one live play-through of a case. It is owned by the session
// registry and mutated only through command handlers under the per-session
// lock.
type Session struct {
	ID           string        `json:"id"`
	CaseID       string        `json:"caseId"`
	TeacherID    string        `json:"teacherId"`
	Status       SessionStatus `json:"status"`
	CurrentRound int           `json:"currentRound"`
	Settings     Settings      `json:"settings"`

	// RoundStartedAt is set while the round timer runs; RemainingSeconds
	// preserves the unexpired budget across a pause.
	RoundStartedAt   *time.Time `json:"roundStartedAt,omitempty"`
	RemainingSeconds *int       `json:"remainingSeconds,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MaxRound returns the last playable round for this session's case.
func (s *Session) MaxRound(c *Case) int {
	max := len(c.Rounds)
	if s.Settings.MaxRounds > 0 && s.Settings.MaxRounds < max {
		max = s.Settings.MaxRounds
	}
	return max
}

// RemainingTime reports seconds left in the current round at instant now,
// or nil when no timer is configured. A paused session holds its preserved
// value; it is resumed, not reset.
func (s *Session) RemainingTime(now time.Time) *int {
	if s.Settings.RoundMinutes <= 0 {
		return nil
	}
	budget := s.Settings.RoundMinutes * 60
	if s.RemainingSeconds != nil {
		budget = *s.RemainingSeconds
	}
	if s.Status != StatusActive || s.RoundStartedAt == nil {
		return &budget
	}
	left := budget - int(now.Sub(*s.RoundStartedAt).Seconds())
	if left < 0 {
		left = 0
	}
	return &left
}

// StartRoundTimer resets the timer bookkeeping for a freshly entered round.
func (s *Session) StartRoundTimer(now time.Time) {
	s.RoundStartedAt = &now
	s.RemainingSeconds = nil
}

// PauseRoundTimer freezes the timer, preserving the remaining budget.
func (s *Session) PauseRoundTimer(now time.Time) {
	if left := s.RemainingTime(now); left != nil {
		s.RemainingSeconds = left
	}
	s.RoundStartedAt = nil
}

// ResumeRoundTimer restarts the clock against the preserved budget.
func (s *Session) ResumeRoundTimer(now time.Time) {
	s.RoundStartedAt = &now
}
