// Package scoring computes the metrics athletes are ranked by.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/liftboard/internal/domain/model"
)

// Relative strength polynomial coefficients, constant through quintic term.
const (
	coeffA = -216.0475144
	coeffB = 16.2606339
	coeffC = -0.002388645
	coeffD = -0.00113732
	coeffE = 7.01863e-6
	coeffF = -1.291e-8

	relativeNumerator = 500.0
)

// ComputeScore returns the bodyweight-normalized strength score for a lift.
// The result is not rounded; callers decide display precision.
//
// The normalizing polynomial is only positive for bodyweights between roughly
// 13.47 kg and 283.04 kg. Outside that band, and for non-positive or
// non-finite inputs, ComputeScore fails with model.ErrInvalidInput.
func ComputeScore(liftedMassKg, bodyMassKg float64) (float64, error) {
	if !positiveFinite(liftedMassKg) {
		return 0, fmt.Errorf("%w: lifted mass %v", model.ErrInvalidInput, liftedMassKg)
	}
	if !positiveFinite(bodyMassKg) {
		return 0, fmt.Errorf("%w: body mass %v", model.ErrInvalidInput, bodyMassKg)
	}

	denom := polynomial(bodyMassKg)
	if denom <= 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0, fmt.Errorf("%w: body mass %v gives degenerate normalizer %v", model.ErrInvalidInput, bodyMassKg, denom)
	}

	coefficient := relativeNumerator / denom
	return liftedMassKg * coefficient, nil
}

func polynomial(x float64) float64 {
	x2 := x * x
	x3 := x2 * x
	x4 := x3 * x
	x5 := x4 * x
	return coeffA + coeffB*x + coeffC*x2 + coeffD*x3 + coeffE*x4 + coeffF*x5
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
