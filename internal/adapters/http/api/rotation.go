package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/liftboard/internal/domain/types"
)

// RotationDependencies defines the interface for rotation reads.
type RotationDependencies interface {
	Rotation() types.Rotation
	Assignment(week int) types.Assignment
	Countdown(cutoffDate string) (time.Duration, error)
}

// RotationHandler serves the weekly exercise rotation.
type RotationHandler struct {
	deps RotationDependencies
}

// NewRotationHandler creates a new rotation handler.
func NewRotationHandler(deps RotationDependencies) *RotationHandler {
	return &RotationHandler{deps: deps}
}

type weekResponse struct {
	Week       int              `json:"week"`
	Assignment types.Assignment `json:"assignment"`
}

type countdownResponse struct {
	RemainingMS int64 `json:"remaining_ms"`
}

// HandleCurrent handles GET /rotation/current.
func (h *RotationHandler) HandleCurrent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Rotation())
}

// HandleWeek handles GET /rotation/weeks/{week}. Any integer is accepted.
func (h *RotationHandler) HandleWeek(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["week"]
	week, err := strconv.Atoi(raw)
	if err != nil {
		writeDomainError(w, fmt.Errorf("%w: week %q", ErrBadRequest, raw))
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Week: week, Assignment: h.deps.Assignment(week)})
}

// HandleCountdown handles GET /countdown?cutoff=YYYY-MM-DD. Without cutoff
// it counts down to the next scheduled deadline.
func (h *RotationHandler) HandleCountdown(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Countdown(r.URL.Query().Get("cutoff"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countdownResponse{RemainingMS: d.Milliseconds()})
}
