package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ScoreDependencies defines the interface for the strength calculator.
type ScoreDependencies interface {
	Score(ctx context.Context, liftedKg, bodyKg float64, reps int) (float64, error)
}

// ScoreHandler serves the relative strength calculator.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

type scoreResponse struct {
	LiftedKg float64 `json:"lifted_kg"`
	BodyKg   float64 `json:"body_kg"`
	Reps     int     `json:"reps"`
	Score    float64 `json:"score"`
}

// HandleScore handles GET /score?lifted_kg=&body_kg=[&reps=].
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lifted, err := floatParam(q, "lifted_kg")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body, err := floatParam(q, "body_kg")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	reps := 1
	if raw := q.Get("reps"); raw != "" {
		if reps, err = strconv.Atoi(raw); err != nil {
			writeDomainError(w, fmt.Errorf("%w: reps %q", ErrBadRequest, raw))
			return
		}
	}
	// Zero reps means a single, as on submissions.
	if reps == 0 {
		reps = 1
	}

	score, err := h.deps.Score(r.Context(), lifted, body, reps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{LiftedKg: lifted, BodyKg: body, Reps: reps, Score: score})
}

func floatParam(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrBadRequest, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrBadRequest, name, raw)
	}
	return v, nil
}
