package game

import "time"

// RevealRecord is one row of the authoritative reveal log for a
// session+round.
type RevealRecord struct {
	ClueID     string    `json:"clueId"`
	Order      int       `json:"order"`
	RevealedAt time.Time `json:"revealedAt"`
}

// RevealedClue pairs a clue with the instant it was disclosed.
type RevealedClue struct {
	Clue       Clue      `json:"clue"`
	RevealedAt time.Time `json:"revealedAt"`
}

// RevealState is the derived view of a round's clue disclosure. Revealed
// clues always form a strict prefix of the round's reveal order.
type RevealState struct {
	Round           int            `json:"round"`
	TotalClues      int            `json:"totalClues"`
	Revealed        []RevealedClue `json:"revealed"`
	NextIndex       int            `json:"nextIndex"`
	Complete        bool           `json:"complete"`
	RemainingBudget int            `json:"remainingBudget"`
}

// DeriveRevealState recomputes the reveal state for a round from its log
// of reveal records. Counters are never cached; the log is authoritative.
func DeriveRevealState(r *Round, records []RevealRecord) RevealState {
	count := len(records)
	if count > len(r.Clues) {
		count = len(r.Clues)
	}

	st := RevealState{
		Round:      r.Number,
		TotalClues: len(r.Clues),
		Revealed:   make([]RevealedClue, 0, count),
		NextIndex:  count,
		Complete:   count == len(r.Clues),
	}
	for i := 0; i < count; i++ {
		st.Revealed = append(st.Revealed, RevealedClue{
			Clue:       r.Clues[i],
			RevealedAt: records[i].RevealedAt,
		})
	}
	for _, cl := range r.Clues[count:] {
		st.RemainingBudget += cl.Points
	}
	return st
}
