package loadgen

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

const (
	minBodyKg   = 52.0
	maxBodyKg   = 130.0
	minLiftedKg = 30.0
	maxLiftedKg = 260.0
	maxReps     = 8
	spreadSecs  = 600
)

type athlete struct {
	id     string
	bodyKg float64
}

// generate builds cfg.Lifts submissions spread over cfg.Athletes athletes,
// followed by the re-sent duplicates. Timestamps fall in the minutes before
// now so every lift lands on the running board.
func generate(cfg *Config, rng *rand.Rand, now time.Time) []Lift {
	athletes := make([]athlete, max(cfg.Athletes, 1))
	for i := range athletes {
		athletes[i] = athlete{
			id:     uuid.NewString(),
			bodyKg: round1(minBodyKg + rng.Float64()*(maxBodyKg-minBodyKg)),
		}
	}

	lifts := make([]Lift, 0, cfg.Lifts+int(float64(cfg.Lifts)*cfg.DuplicateRate)+1)
	for range cfg.Lifts {
		a := athletes[rng.IntN(len(athletes))]
		lift := Lift{
			SubmissionID:   uuid.NewString(),
			AthleteID:      a.id,
			LiftedKg:       round1(minLiftedKg + rng.Float64()*(maxLiftedKg-minLiftedKg)),
			Reps:           1 + rng.IntN(maxReps),
			PersonalRecord: rng.IntN(10) == 0,
			TS:             now.Add(-time.Duration(rng.IntN(spreadSecs)) * time.Second).UTC().Format(time.RFC3339),
		}
		if rng.Float64() >= cfg.NoBodyRate {
			body := a.bodyKg
			lift.BodyKg = &body
		}
		lifts = append(lifts, lift)
	}

	originals := len(lifts)
	for i := 0; i < originals; i++ {
		if rng.Float64() < cfg.DuplicateRate {
			lifts = append(lifts, lifts[i])
		}
	}
	return lifts
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
