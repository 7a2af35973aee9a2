package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/liftboard/internal/domain/model"
)

// BoardDependencies defines the interface for leaderboard reads.
type BoardDependencies interface {
	ResolveBoard(value string) (model.BoardKey, error)
	Leaderboard(ctx context.Context, board model.BoardKey, n int) ([]Entry, error)
	Rank(ctx context.Context, board model.BoardKey, athleteID string) (Entry, error)
}

// BoardHandler serves leaderboard and rank queries.
type BoardHandler struct {
	deps     BoardDependencies
	maxLimit int
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(deps BoardDependencies, maxLimit int) *BoardHandler {
	return &BoardHandler{deps: deps, maxLimit: maxLimit}
}

type leaderboardResponse struct {
	Board   string  `json:"board"`
	Entries []Entry `json:"entries"`
}

// HandleGetLeaderboard handles GET /leaderboard/{board}?limit=N.
func (h *BoardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.deps.ResolveBoard(mux.Vars(r)["board"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	n, err := h.limit(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entries, err := h.deps.Leaderboard(r.Context(), board, n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Board: board.String(), Entries: entries})
}

// limit reads ?limit; absent means the default page, capped by maxLimit.
func (h *BoardHandler) limit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return min(defaultLeaderboardLimit, h.maxLimit), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit %q", ErrBadRequest, raw)
	}
	if n > h.maxLimit {
		return 0, fmt.Errorf("%w: limit %d above %d", ErrLimit, n, h.maxLimit)
	}
	return n, nil
}

// HandleGetRank handles GET /rank/{board}/{athlete_id}.
func (h *BoardHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	board, err := h.deps.ResolveBoard(vars["board"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entry, err := h.deps.Rank(r.Context(), board, vars["athlete_id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
