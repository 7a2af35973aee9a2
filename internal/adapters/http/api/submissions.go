package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/liftboard/internal/domain/model"
	"github.com/okian/liftboard/internal/domain/types"
)

const maxSubmissionBytes = 64 << 10

// SubmissionDependencies defines the interface for submission intake.
type SubmissionDependencies interface {
	Submit(ctx context.Context, sub model.Submission) (types.Receipt, error)
}

// SubmissionsHandler handles POST /submissions.
type SubmissionsHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionDependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

// submissionRequest is the JSON body of POST /submissions.
type submissionRequest struct {
	SubmissionID   string   `json:"submission_id"`
	AthleteID      string   `json:"athlete_id"`
	LiftedKg       float64  `json:"lifted_kg"`
	Reps           int      `json:"reps"`
	BodyKg         *float64 `json:"body_kg"`
	PersonalRecord bool     `json:"personal_record"`
	TS             string   `json:"ts"`
}

func (req submissionRequest) toSubmission() (model.Submission, error) {
	switch {
	case strings.TrimSpace(req.AthleteID) == "":
		return model.Submission{}, fmt.Errorf("%w: missing athlete_id", ErrBadRequest)
	case req.LiftedKg <= 0:
		return model.Submission{}, fmt.Errorf("%w: lifted_kg must be positive", ErrBadRequest)
	case strings.TrimSpace(req.TS) == "":
		return model.Submission{}, fmt.Errorf("%w: missing ts", ErrBadRequest)
	}
	ts, err := parseTS(req.TS)
	if err != nil {
		return model.Submission{}, fmt.Errorf("%w: invalid ts; must be RFC3339", ErrBadRequest)
	}
	return model.Submission{
		SubmissionID:   strings.TrimSpace(req.SubmissionID),
		AthleteID:      req.AthleteID,
		LiftedKg:       req.LiftedKg,
		Reps:           req.Reps,
		BodyKg:         req.BodyKg,
		PersonalRecord: req.PersonalRecord,
		TS:             ts,
	}, nil
}

// HandlePostSubmission validates, deduplicates and enqueues a lift.
// 202 when accepted, 200 for a duplicate, 429 when the queue is full.
func (h *SubmissionsHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request) {
	var req submissionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	sub, err := req.toSubmission()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	receipt, err := h.deps.Submit(r.Context(), sub)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if receipt.Status == types.StatusDuplicate {
		writeJSON(w, http.StatusOK, receipt)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}
