package scoring

import (
	"fmt"
	"strings"

	"github.com/okian/liftboard/internal/domain/model"
)

// Formula selects how a multi-rep set is converted to an estimated one-rep max.
type Formula int

const (
	// Epley estimates 1RM as w * (1 + reps/30).
	Epley Formula = iota
	// Brzycki estimates 1RM as w * 36 / (37 - reps). Undefined from 37 reps on.
	Brzycki
)

const brzyckiRepLimit = 37

func (f Formula) String() string {
	switch f {
	case Epley:
		return "epley"
	case Brzycki:
		return "brzycki"
	default:
		return fmt.Sprintf("formula(%d)", int(f))
	}
}

// ParseFormula maps a configuration value to a Formula.
func ParseFormula(s string) (Formula, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "epley":
		return Epley, nil
	case "brzycki":
		return Brzycki, nil
	default:
		return 0, fmt.Errorf("%w: unknown one-rep-max formula %q", model.ErrInvalidInput, s)
	}
}

// EstimateOneRepMax converts a set of reps at liftedMassKg into an estimated
// single-rep maximum. A single rep is returned unchanged.
func EstimateOneRepMax(liftedMassKg float64, reps int, formula Formula) (float64, error) {
	if !positiveFinite(liftedMassKg) {
		return 0, fmt.Errorf("%w: lifted mass %v", model.ErrInvalidInput, liftedMassKg)
	}
	if reps < 1 {
		return 0, fmt.Errorf("%w: reps %d", model.ErrInvalidInput, reps)
	}
	if reps == 1 {
		return liftedMassKg, nil
	}

	switch formula {
	case Epley:
		return liftedMassKg * (1 + float64(reps)/30), nil
	case Brzycki:
		if reps >= brzyckiRepLimit {
			return 0, fmt.Errorf("%w: brzycki undefined for %d reps", model.ErrInvalidInput, reps)
		}
		return liftedMassKg * 36 / float64(brzyckiRepLimit-reps), nil
	default:
		return 0, fmt.Errorf("%w: %s", model.ErrInvalidInput, formula)
	}
}
