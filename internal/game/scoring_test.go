package game

import (
	"math"
	"reflect"
	"testing"
)

var (
	paris  = Coordinate{Lat: 48.8566, Lng: 2.3522}
	london = Coordinate{Lat: 51.5074, Lng: -0.1278}
)

func scoringRound() *Round {
	c := validCase()
	return &c.Rounds[0]
}

func TestHaversine(t *testing.T) {
	// Paris to London is roughly 344 km.
	km := Haversine(paris, london)
	if km < 330 || km > 360 {
		t.Errorf("Paris-London distance: got %.1f km, want ~344", km)
	}

	if d := Haversine(paris, paris); d != 0 {
		t.Errorf("zero distance: got %f", d)
	}
}

func TestTableScorerCombinations(t *testing.T) {
	r := scoringRound()
	s := TableScorer{ThresholdKm: 50}

	tests := []struct {
		name       string
		guess      Guess
		wantLoc    bool
		wantSus    bool
		wantPoints int
	}{
		{"both correct", Guess{LocationID: "Paris", SuspectID: "dr-meridian"}, true, true, 500},
		{"location only", Guess{LocationID: "paris", SuspectID: "baron-azimuth"}, true, false, 300},
		{"suspect only", Guess{LocationID: "london", SuspectID: "Dr-Meridian"}, false, true, 150},
		{"neither", Guess{LocationID: "london", SuspectID: "baron-azimuth"}, false, false, 0},
		{"pin within threshold", Guess{Location: &Coordinate{Lat: 48.86, Lng: 2.35}, SuspectID: "dr-meridian"}, true, true, 500},
		{"pin outside threshold", Guess{Location: &london}, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Score(r, tt.guess)
			if res.LocationCorrect != tt.wantLoc {
				t.Errorf("location correct: got %v, want %v", res.LocationCorrect, tt.wantLoc)
			}
			if res.SuspectCorrect != tt.wantSus {
				t.Errorf("suspect correct: got %v, want %v", res.SuspectCorrect, tt.wantSus)
			}
			if res.Points != tt.wantPoints {
				t.Errorf("points: got %d, want %d", res.Points, tt.wantPoints)
			}
		})
	}
}

func TestDistanceScorerDecay(t *testing.T) {
	r := scoringRound()
	s := DistanceScorer{MaxPoints: 300, ScaleKm: 100, ThresholdKm: 50}

	// Exact pin: full points.
	res := s.Score(r, Guess{Location: &paris})
	if !res.LocationCorrect || res.Points != 300 {
		t.Errorf("exact pin: got correct=%v points=%d", res.LocationCorrect, res.Points)
	}

	// ~344 km away: 300 - floor(344/100) = 297, but outside the
	// correctness threshold.
	res = s.Score(r, Guess{Location: &london})
	km := Haversine(london, paris)
	want := 300 - int(math.Floor(km/100))
	if res.Points != want {
		t.Errorf("london pin: got %d points, want %d", res.Points, want)
	}
	if res.LocationCorrect {
		t.Error("london pin should not count as correct location")
	}
}

func TestDistanceScorerFloorsAtZero(t *testing.T) {
	r := scoringRound()
	s := DistanceScorer{MaxPoints: 50, ScaleKm: 1, ThresholdKm: 50}

	// Thousands of km away with a 1 km scale: award must floor at zero,
	// never go negative.
	res := s.Score(r, Guess{Location: &Coordinate{Lat: -33.9, Lng: 151.2}})
	if res.Points != 0 {
		t.Errorf("expected 0 points, got %d", res.Points)
	}
}

func TestDistanceScorerSuspectBonus(t *testing.T) {
	r := scoringRound()
	s := DistanceScorer{MaxPoints: 300, ScaleKm: 100, ThresholdKm: 50}

	res := s.Score(r, Guess{Location: &paris, SuspectID: "dr-meridian"})
	if res.Points != 300+150 {
		t.Errorf("expected suspect bonus on top of distance award, got %d", res.Points)
	}
}

func TestDistanceScorerIdentifierFallback(t *testing.T) {
	r := scoringRound()
	s := DistanceScorer{MaxPoints: 300, ScaleKm: 100, ThresholdKm: 50}

	res := s.Score(r, Guess{LocationID: "paris"})
	if !res.LocationCorrect || res.Points != 300 {
		t.Errorf("identifier fallback: got correct=%v points=%d", res.LocationCorrect, res.Points)
	}
}

func TestSettingsScorerSelection(t *testing.T) {
	s := DefaultSettings()
	if _, ok := s.Scorer().(TableScorer); !ok {
		t.Errorf("default strategy should be table-based, got %T", s.Scorer())
	}

	s.ScoringStrategy = ScoringStrategyDistance
	if _, ok := s.Scorer().(DistanceScorer); !ok {
		t.Errorf("expected distance scorer, got %T", s.Scorer())
	}
}

func TestSettingsNormalized(t *testing.T) {
	def := DefaultSettings()

	got := Settings{ScoringStrategy: ScoringStrategyDistance}.Normalized()
	if got.DistanceMaxPoints != def.DistanceMaxPoints ||
		got.DistanceScaleKm != def.DistanceScaleKm ||
		got.DistanceThresholdKm != def.DistanceThresholdKm {
		t.Errorf("unset distance params should pick up defaults, got %+v", got)
	}
	if got.ScoringStrategy != ScoringStrategyDistance {
		t.Errorf("strategy choice must survive normalization, got %q", got.ScoringStrategy)
	}

	got = Settings{}.Normalized()
	if got.ScoringStrategy != ScoringStrategyTable {
		t.Errorf("empty strategy should default to table, got %q", got.ScoringStrategy)
	}

	custom := Settings{ScoringStrategy: ScoringStrategyDistance, DistanceMaxPoints: 50, DistanceScaleKm: 10, DistanceThresholdKm: 5}
	if got := custom.Normalized(); !reflect.DeepEqual(got, custom) {
		t.Errorf("explicit values must not be overridden, got %+v", got)
	}
}

func TestSettingsMultiplier(t *testing.T) {
	s := Settings{RoundMultipliers: []float64{1, 0.75, 0.5}}

	tests := []struct {
		round int
		want  float64
	}{
		{1, 1}, {2, 0.75}, {3, 0.5}, {4, 1}, {0, 1},
	}
	for _, tt := range tests {
		if got := s.Multiplier(tt.round); got != tt.want {
			t.Errorf("round %d: got %v, want %v", tt.round, got, tt.want)
		}
	}
}
