package game

import (
	"math"
	"strings"
)

// Scoring strategy names, selectable per session.
const (
	ScoringStrategyTable    = "table"
	ScoringStrategyDistance = "distance"
)

// Guess is the evaluated part of a warrant: a proposed location (by
// identifier and/or map pin) and a proposed suspect.
type Guess struct {
	LocationID string
	Location   *Coordinate
	SuspectID  string
}

// ScoreResult is the outcome of evaluating a guess against a round's
// canonical answer, before round multipliers and penalties.
type ScoreResult struct {
	LocationCorrect bool
	SuspectCorrect  bool
	Points          int
}

// Scorer evaluates a guess against one round. Table-based and
// distance-based scoring are interchangeable implementations.
type Scorer interface {
	Score(r *Round, g Guess) ScoreResult
}

// Scorer returns the scoring strategy configured for this session.
func (s Settings) Scorer() Scorer {
	if s.ScoringStrategy == ScoringStrategyDistance {
		return DistanceScorer{
			MaxPoints:   s.DistanceMaxPoints,
			ScaleKm:     s.DistanceScaleKm,
			ThresholdKm: s.DistanceThresholdKm,
		}
	}
	return TableScorer{ThresholdKm: s.DistanceThresholdKm}
}

// MatchesSuspect reports exact-id equality with the canonical suspect.
func (a *Answer) MatchesSuspect(id string) bool {
	return id != "" && strings.EqualFold(strings.TrimSpace(id), a.SuspectID)
}

// MatchesLocation reports whether the guess hits the canonical location:
// either an accepted identifier matches, or the pin falls within
// thresholdKm great-circle distance.
func (a *Answer) MatchesLocation(g Guess, thresholdKm float64) bool {
	if id := strings.TrimSpace(g.LocationID); id != "" {
		for _, accepted := range a.AcceptedLocations {
			if strings.EqualFold(id, accepted) {
				return true
			}
		}
	}
	if g.Location != nil && thresholdKm > 0 {
		return Haversine(*g.Location, a.Location) <= thresholdKm
	}
	return false
}

// TableScorer awards points from the round's scoring table, keyed by the
// correctness combination.
type TableScorer struct {
	ThresholdKm float64
}

func (t TableScorer) Score(r *Round, g Guess) ScoreResult {
	res := ScoreResult{
		LocationCorrect: r.Answer.MatchesLocation(g, t.ThresholdKm),
		SuspectCorrect:  r.Answer.MatchesSuspect(g.SuspectID),
	}
	switch {
	case res.LocationCorrect && res.SuspectCorrect:
		res.Points = r.Scoring.Both
	case res.LocationCorrect:
		res.Points = r.Scoring.LocationOnly
	case res.SuspectCorrect:
		res.Points = r.Scoring.SuspectOnly
	default:
		res.Points = r.Scoring.Neither
	}
	return res
}

// DistanceScorer awards location points that decay with great-circle
// distance from the canonical answer, floored at zero. The suspect part
// still comes from the round's table.
type DistanceScorer struct {
	MaxPoints   int
	ScaleKm     float64
	ThresholdKm float64
}

func (d DistanceScorer) Score(r *Round, g Guess) ScoreResult {
	var res ScoreResult
	res.SuspectCorrect = r.Answer.MatchesSuspect(g.SuspectID)

	if g.Location != nil && d.ScaleKm > 0 {
		km := Haversine(*g.Location, r.Answer.Location)
		res.LocationCorrect = km <= d.ThresholdKm
		award := d.MaxPoints - int(math.Floor(km/d.ScaleKm))
		if award > 0 {
			res.Points = award
		}
	} else if r.Answer.MatchesLocation(g, 0) {
		// No pin submitted; fall back to identifier matching at full value.
		res.LocationCorrect = true
		res.Points = d.MaxPoints
	}

	if res.SuspectCorrect {
		res.Points += r.Scoring.SuspectOnly
	}
	return res
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
