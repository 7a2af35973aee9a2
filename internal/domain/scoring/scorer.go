package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/liftboard/internal/domain/model"
)

// MetricKind selects which number a board ranks athletes by.
type MetricKind int

const (
	// MetricLoad ranks by the load on the bar.
	MetricLoad MetricKind = iota
	// MetricEstimatedOneRepMax ranks by estimated 1RM.
	MetricEstimatedOneRepMax
	// MetricRelative ranks by relative strength of the estimated 1RM.
	MetricRelative
)

func (k MetricKind) String() string {
	switch k {
	case MetricLoad:
		return "load"
	case MetricEstimatedOneRepMax:
		return "e1rm"
	case MetricRelative:
		return "relative"
	default:
		return fmt.Sprintf("metric(%d)", int(k))
	}
}

// ParseMetricKind maps a configuration value to a MetricKind.
func ParseMetricKind(s string) (MetricKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "load":
		return MetricLoad, nil
	case "e1rm":
		return MetricEstimatedOneRepMax, nil
	case "relative":
		return MetricRelative, nil
	default:
		return 0, fmt.Errorf("%w: unknown metric %q", model.ErrInvalidInput, s)
	}
}

// Option applies a configuration option to the MetricScorer.
type Option func(*MetricScorer)

// WithMetricKind sets the metric a scorer produces.
func WithMetricKind(kind MetricKind) Option {
	return func(s *MetricScorer) {
		s.kind = kind
	}
}

// WithFormula sets the one-rep-max formula used by e1rm and relative metrics.
func WithFormula(formula Formula) Option {
	return func(s *MetricScorer) {
		s.formula = formula
	}
}

// Input abstracts the submission fields needed for scoring.
type Input struct {
	AthleteID string
	LiftedKg  float64
	Reps      int
	BodyKg    *float64
}

// Result contains the computed metric for an athlete.
type Result struct {
	AthleteID string
	Metric    float64
}

// Scorer computes a metric from an input.
type Scorer interface {
	// Score computes a metric, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// MetricScorer implements Scorer on top of the pure formulas in this package.
type MetricScorer struct {
	kind    MetricKind
	formula Formula
}

// NewMetricScorer creates a scorer. Defaults to relative strength with Epley.
func NewMetricScorer(opts ...Option) *MetricScorer {
	s := &MetricScorer{
		kind:    MetricRelative,
		formula: Epley,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind returns the metric this scorer produces.
func (s *MetricScorer) Kind() MetricKind { return s.kind }

// Score computes the metric for the given input.
func (s *MetricScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	reps := in.Reps
	if reps == 0 {
		reps = 1
	}

	var (
		metric float64
		err    error
	)
	switch s.kind {
	case MetricLoad:
		if !positiveFinite(in.LiftedKg) {
			return Result{}, fmt.Errorf("%w: lifted mass %v", model.ErrInvalidInput, in.LiftedKg)
		}
		metric = in.LiftedKg
	case MetricEstimatedOneRepMax:
		metric, err = EstimateOneRepMax(in.LiftedKg, reps, s.formula)
	case MetricRelative:
		if in.BodyKg == nil {
			return Result{}, ErrNoBodyMass
		}
		var e1rm float64
		e1rm, err = EstimateOneRepMax(in.LiftedKg, reps, s.formula)
		if err == nil {
			metric, err = ComputeScore(e1rm, *in.BodyKg)
		}
	default:
		err = fmt.Errorf("%w: %s", model.ErrInvalidInput, s.kind)
	}
	if err != nil {
		return Result{}, err
	}

	return Result{AthleteID: in.AthleteID, Metric: metric}, nil
}
