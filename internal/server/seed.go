package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/geosleuth/geocase/internal/game"
)

const (
	demoEmail    = "teacher@geocase.local"
	demoPassword = "letmein"
)

// SeedDemo creates a demo console user and a demo case when the database
// is empty. Idempotent: existing cases mean nothing is touched.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store) error {
	existing, err := store.ListCases(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := store.CreateConsoleUser(ctx, demoEmail, string(hash)); err != nil {
		return err
	}

	c := demoCase()
	if err := c.Validate(); err != nil {
		return err
	}
	if err := store.CreateCase(ctx, c); err != nil {
		return err
	}

	logger.Info("demo console user and case seeded", "email", demoEmail, "case_id", c.ID)
	return nil
}

func demoCase() *game.Case {
	return &game.Case{
		ID:          uuid.NewString(),
		Title:       "The Vanished Cartographer",
		Description: "A mapmaker disappeared mid-survey. Follow the evidence across Europe.",
		CreatedAt:   time.Now().UTC(),
		Rounds: []game.Round{
			{
				Number: 1,
				Clues: []game.Clue{
					{ID: "r1c1", Type: game.ClueGeography, Content: "The river here splits the city around two islands.", RevealOrder: 1, Points: 300},
					{ID: "r1c2", Type: game.ClueCulture, Content: "Locals take bread seriously enough to regulate its price by law.", RevealOrder: 2, Points: 200},
					{ID: "r1c3", Type: game.ClueVisual, Content: "An iron lattice tower looms over the skyline.", RevealOrder: 3, Points: 100},
				},
				Answer: game.Answer{
					Location:          game.Coordinate{Lat: 48.8566, Lng: 2.3522},
					AcceptedLocations: []string{"paris"},
					SuspectID:         "dr-meridian",
				},
				Scoring: game.ScoringTable{Both: 500, LocationOnly: 300, SuspectOnly: 150, Neither: 0},
			},
			{
				Number: 2,
				Clues: []game.Clue{
					{ID: "r2c1", Type: game.ClueHistorical, Content: "A wall once cut this city in two.", RevealOrder: 1, Points: 300},
					{ID: "r2c2", Type: game.ClueEconomic, Content: "Its startup scene outgrew its airports.", RevealOrder: 2, Points: 200},
					{ID: "r2c3", Type: game.ClueCulture, Content: "Currywurst is the street food of record.", RevealOrder: 3, Points: 100},
				},
				Answer: game.Answer{
					Location:          game.Coordinate{Lat: 52.52, Lng: 13.405},
					AcceptedLocations: []string{"berlin"},
					SuspectID:         "the-compass",
				},
				Scoring: game.ScoringTable{Both: 500, LocationOnly: 300, SuspectOnly: 150, Neither: 0},
			},
		},
	}
}
