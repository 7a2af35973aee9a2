// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/okian/liftboard/internal/adapters/repository"
	"github.com/okian/liftboard/internal/domain/model"
	"github.com/okian/liftboard/internal/domain/types"
	"github.com/okian/liftboard/pkg/logger"
)

const (
	defaultLeaderboardLimit = 10
	defaultMaxLimit         = 100
)

// Dependencies bundles everything the business handlers call.
type Dependencies interface {
	SubmissionDependencies
	BoardDependencies
	RotationDependencies
	ScoreDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	health      *HealthHandler
	stats       *StatsHandler
	submissions *SubmissionsHandler
	boards      *BoardHandler
	rotation    *RotationHandler
	score       *ScoreHandler
	logger      logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxLimit int
	logger   logger.Logger
}

// WithMaxLimit caps the leaderboard ?limit parameter.
func WithMaxLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithServerLogger sets the logger used for recovered panics.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("http")
	}
	return &Server{
		health:      NewHealthHandler(),
		stats:       NewStatsHandler(statsProvider),
		submissions: NewSubmissionsHandler(deps),
		boards:      NewBoardHandler(deps, cfg.maxLimit),
		rotation:    NewRotationHandler(deps),
		score:       NewScoreHandler(deps),
		logger:      cfg.logger,
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(router *mux.Router) {
	router.Use(RecoveryMiddleware(s.logger), MetricsMiddleware)

	router.HandleFunc("/healthz", s.health.HandleHealth).Methods(http.MethodGet).Name("healthz")
	router.HandleFunc("/stats", s.stats.HandleStats).Methods(http.MethodGet).Name("stats")
	router.HandleFunc("/submissions", s.submissions.HandlePostSubmission).Methods(http.MethodPost).Name("submissions")
	router.HandleFunc("/leaderboard/{board}", s.boards.HandleGetLeaderboard).Methods(http.MethodGet).Name("leaderboard")
	router.HandleFunc("/rank/{board}/{athlete_id}", s.boards.HandleGetRank).Methods(http.MethodGet).Name("rank")
	router.HandleFunc("/rotation/current", s.rotation.HandleCurrent).Methods(http.MethodGet).Name("rotation-current")
	router.HandleFunc("/rotation/weeks/{week}", s.rotation.HandleWeek).Methods(http.MethodGet).Name("rotation-week")
	router.HandleFunc("/countdown", s.rotation.HandleCountdown).Methods(http.MethodGet).Name("countdown")
	router.HandleFunc("/score", s.score.HandleScore).Methods(http.MethodGet).Name("score")
}

// Router returns a new router with every route registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps shared sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrLimit), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "limit_exceeded", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
	case errors.Is(err, model.ErrNotStarted), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// parseTS accepts RFC 3339 with or without fractional seconds.
func parseTS(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
