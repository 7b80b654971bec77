package game

import (
	"testing"
	"time"
)

func TestDeriveRevealStateFresh(t *testing.T) {
	r := scoringRound()

	st := DeriveRevealState(r, nil)
	if st.TotalClues != 3 || st.NextIndex != 0 || st.Complete {
		t.Errorf("fresh state: %+v", st)
	}
	if st.RemainingBudget != 600 {
		t.Errorf("remaining budget: got %d, want 600", st.RemainingBudget)
	}
	if len(st.Revealed) != 0 {
		t.Errorf("expected no revealed clues, got %d", len(st.Revealed))
	}
}

func TestDeriveRevealStatePrefix(t *testing.T) {
	r := scoringRound()
	now := time.Now()
	records := []RevealRecord{
		{ClueID: "c1", Order: 1, RevealedAt: now},
		{ClueID: "c2", Order: 2, RevealedAt: now.Add(time.Minute)},
	}

	st := DeriveRevealState(r, records)
	if st.NextIndex != 2 || st.Complete {
		t.Errorf("after two reveals: %+v", st)
	}
	if st.RemainingBudget != 100 {
		t.Errorf("remaining budget: got %d, want 100", st.RemainingBudget)
	}
	// Revealed clues must be the reveal-order prefix.
	if st.Revealed[0].Clue.ID != "c1" || st.Revealed[1].Clue.ID != "c2" {
		t.Errorf("revealed prefix broken: %v", st.Revealed)
	}
}

func TestDeriveRevealStateComplete(t *testing.T) {
	r := scoringRound()
	now := time.Now()
	records := []RevealRecord{
		{ClueID: "c1", Order: 1, RevealedAt: now},
		{ClueID: "c2", Order: 2, RevealedAt: now},
		{ClueID: "c3", Order: 3, RevealedAt: now},
	}

	st := DeriveRevealState(r, records)
	if !st.Complete || st.NextIndex != 3 || st.RemainingBudget != 0 {
		t.Errorf("complete state: %+v", st)
	}
}

func TestSessionTimerPauseResume(t *testing.T) {
	now := time.Now()
	s := &Session{Status: StatusActive, Settings: Settings{RoundMinutes: 10}}
	s.StartRoundTimer(now)

	// Pause after 3 minutes.
	s.PauseRoundTimer(now.Add(3 * time.Minute))
	s.Status = StatusPaused
	left := s.RemainingTime(now.Add(4 * time.Minute))
	if left == nil || *left != 7*60 {
		t.Fatalf("paused remaining: got %v, want 420", left)
	}

	// Resume; one more minute burns down against the preserved budget.
	resumeAt := now.Add(10 * time.Minute)
	s.ResumeRoundTimer(resumeAt)
	s.Status = StatusActive
	left = s.RemainingTime(resumeAt.Add(time.Minute))
	if left == nil || *left != 6*60 {
		t.Fatalf("resumed remaining: got %v, want 360", left)
	}
}

func TestSessionTimerDisabled(t *testing.T) {
	s := &Session{Status: StatusActive, Settings: Settings{RoundMinutes: 0}}
	if left := s.RemainingTime(time.Now()); left != nil {
		t.Errorf("no timer configured: got %v, want nil", left)
	}
}
