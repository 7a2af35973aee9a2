// Package service wires the submission pipeline and the read model behind
// the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/liftboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/liftboard/internal/adapters/mq/worker"
	"github.com/okian/liftboard/internal/adapters/repository"
	"github.com/okian/liftboard/internal/domain/dedupe"
	"github.com/okian/liftboard/internal/domain/model"
	"github.com/okian/liftboard/internal/domain/rotation"
	"github.com/okian/liftboard/internal/domain/scoring"
	"github.com/okian/liftboard/internal/domain/types"
	"github.com/okian/liftboard/pkg/logger"
	"github.com/okian/liftboard/pkg/metrics"
)

// CurrentBoard is the board alias resolved to the week containing now.
const CurrentBoard = "current"

// Stats is a monitoring snapshot of the service.
type Stats struct {
	Started       bool             `json:"started"`
	Metric        string           `json:"metric"`
	Formula       string           `json:"formula"`
	CurrentBoard  string           `json:"current_board"`
	QueueLength   int              `json:"queue_length"`
	QueueCapacity int              `json:"queue_capacity"`
	QueueClosed   bool             `json:"queue_closed"`
	TotalEntries  int              `json:"total_entries"`
	DedupeEntries int64            `json:"dedupe_entries"`
	Boards        map[string]int   `json:"boards"`
	Workers       workerpool.Stats `json:"workers"`
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	pool      *workerpool.Pool
	scorer    *scoring.MetricScorer
	relative  *scoring.MetricScorer
	scheduler *rotation.Scheduler

	workerCount   int
	queueSize     int
	dedupeCacheMB int
	dedupeTTL     time.Duration
	metricKind    scoring.MetricKind
	formula       scoring.Formula
	table         []rotation.Assignment
	loc           *time.Location
	cutoffDay     time.Weekday
	now           func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeCache sets the memory budget and retention of seen submission ids.
func WithDedupeCache(sizeMB int, ttl time.Duration) Option {
	return func(s *Service) {
		if sizeMB > 0 {
			s.dedupeCacheMB = sizeMB
		}
		if ttl >= 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithMetric selects what boards rank by and the one-rep-max formula.
func WithMetric(kind scoring.MetricKind, formula scoring.Formula) Option {
	return func(s *Service) {
		s.metricKind = kind
		s.formula = formula
	}
}

// WithRotation sets the rotation table, local zone and cutoff weekday.
func WithRotation(table []rotation.Assignment, loc *time.Location, cutoff time.Weekday) Option {
	return func(s *Service) {
		if len(table) > 0 {
			s.table = table
		}
		if loc != nil {
			s.loc = loc
		}
		s.cutoffDay = cutoff
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Pipeline components are created by Start; the
// rotation and calculator endpoints work immediately.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		workerCount:   runtime.NumCPU() * 4,
		queueSize:     100_000,
		dedupeCacheMB: 32,
		dedupeTTL:     7 * 24 * time.Hour,
		metricKind:    scoring.MetricRelative,
		formula:       scoring.Epley,
		table:         rotation.DefaultTable,
		loc:           time.Local,
		cutoffDay:     time.Friday,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	sched, err := rotation.New(s.table, rotation.WithLocation(s.loc), rotation.WithCutoffWeekday(s.cutoffDay))
	if err != nil {
		return nil, fmt.Errorf("rotation: %w", err)
	}
	s.scheduler = sched
	s.scorer = scoring.NewMetricScorer(scoring.WithMetricKind(s.metricKind), scoring.WithFormula(s.formula))
	s.relative = scoring.NewMetricScorer(scoring.WithMetricKind(scoring.MetricRelative), scoring.WithFormula(s.formula))
	return s, nil
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.store = repository.NewTreapStore()
	s.deduper = dedupe.NewCacheDeduper(
		dedupe.WithCacheSizeMB(s.dedupeCacheMB),
		dedupe.WithTTL(s.dedupeTTL),
	)
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.scorer, s.store)
	// Workers outlive ctx; only Stop ends them, after the queue drains.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.String("metric", s.metricKind.String()),
		logger.String("formula", s.formula.String()),
		logger.String("board", s.scheduler.Board(s.now()).String()),
	)
	return nil
}

// Stop drains the queue and stops the workers. Boards stay readable.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	err := s.pool.Shutdown(ctx)
	s.logger.Info(ctx, "leaderboard service stopped", logger.Any("workers", s.pool.Stats()))
	return err
}

// Submit validates a submission, assigns its board and hands it to the
// workers. The returned receipt is valid when err is nil.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (types.Receipt, error) { //nolint:gocritic // hugeParam: copied into the queue
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Receipt{}, model.ErrNotStarted
	}

	if err := validate(&sub); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return types.Receipt{}, err
	}
	if sub.SubmissionID == "" {
		sub.SubmissionID = uuid.NewString()
	}
	sub.Board = s.scheduler.Board(sub.TS)
	receipt := types.Receipt{SubmissionID: sub.SubmissionID, Board: sub.Board.String()}

	if s.deduper.SeenAndRecord(ctx, sub.SubmissionID) {
		metrics.RecordSubmissionDuplicate()
		receipt.Status = types.StatusDuplicate
		return receipt, nil
	}

	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, sub.SubmissionID)
		if errors.Is(err, eventqueue.ErrFull) {
			metrics.RecordSubmissionRejected("queue_full")
			return types.Receipt{}, model.ErrQueueFull
		}
		metrics.RecordSubmissionRejected("enqueue_failed")
		return types.Receipt{}, fmt.Errorf("enqueue %s: %w", sub.SubmissionID, err)
	}

	metrics.RecordSubmissionAccepted()
	receipt.Status = types.StatusAccepted
	return receipt, nil
}

func validate(sub *model.Submission) error {
	sub.AthleteID = strings.TrimSpace(sub.AthleteID)
	switch {
	case sub.AthleteID == "":
		return fmt.Errorf("%w: athlete_id is required", model.ErrInvalidInput)
	case !finitePositive(sub.LiftedKg):
		return fmt.Errorf("%w: lifted_kg must be a positive number", model.ErrInvalidInput)
	case sub.Reps < 0:
		return fmt.Errorf("%w: reps must not be negative", model.ErrInvalidInput)
	case sub.BodyKg != nil && !finitePositive(*sub.BodyKg):
		return fmt.Errorf("%w: body_kg must be a positive number", model.ErrInvalidInput)
	case sub.TS.IsZero():
		return fmt.Errorf("%w: ts is required", model.ErrInvalidInput)
	}
	if sub.Reps == 0 {
		sub.Reps = 1
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// ResolveBoard parses a YYYY-Www key or the "current" alias.
func (s *Service) ResolveBoard(value string) (model.BoardKey, error) {
	if strings.EqualFold(strings.TrimSpace(value), CurrentBoard) {
		return s.scheduler.Board(s.now()), nil
	}
	return model.ParseBoardKey(value)
}

// Leaderboard returns the first n entries of a board.
func (s *Service) Leaderboard(ctx context.Context, board model.BoardKey, n int) ([]types.Entry, error) {
	store, err := s.readStore()
	if err != nil {
		return nil, err
	}
	return store.TopN(ctx, board, n)
}

// Rank returns an athlete's entry on a board.
func (s *Service) Rank(ctx context.Context, board model.BoardKey, athleteID string) (types.Entry, error) {
	store, err := s.readStore()
	if err != nil {
		return types.Entry{}, err
	}
	return store.Rank(ctx, board, athleteID)
}

func (s *Service) readStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, model.ErrNotStarted
	}
	return s.store, nil
}

// Rotation describes the running challenge week.
func (s *Service) Rotation() types.Rotation {
	now := s.now()
	y, w := s.scheduler.Week(now)
	cutoff := s.scheduler.NextCutoff(now)
	return types.Rotation{
		Board:       model.BoardKey{Year: y, Week: w}.String(),
		Week:        w,
		Current:     toAssignment(s.scheduler.Current(now)),
		Next:        toAssignment(s.scheduler.Next(now)),
		CutoffDate:  cutoff.Format(time.DateOnly),
		RemainingMS: s.scheduler.RemainingUntil(cutoff, now).Milliseconds(),
	}
}

// Assignment returns the exercise featured in any integer week.
func (s *Service) Assignment(week int) types.Assignment {
	return toAssignment(s.scheduler.AssignmentForWeek(week))
}

func toAssignment(a rotation.Assignment) types.Assignment {
	return types.Assignment{ExerciseID: a.ExerciseID, DisplayName: a.DisplayName}
}

// Countdown returns the time left until the deadline on cutoffDate. An empty
// cutoffDate means the next scheduled cutoff.
func (s *Service) Countdown(cutoffDate string) (time.Duration, error) {
	now := s.now()
	if strings.TrimSpace(cutoffDate) == "" {
		return s.scheduler.Countdown(now), nil
	}
	return s.scheduler.RemainingUntilCutoff(cutoffDate, now)
}

// Score computes the relative strength of a set without recording it.
func (s *Service) Score(ctx context.Context, liftedKg, bodyKg float64, reps int) (float64, error) {
	if reps < 0 {
		return 0, fmt.Errorf("%w: reps %d", model.ErrInvalidInput, reps)
	}
	res, err := s.relative.Score(ctx, scoring.Input{LiftedKg: liftedKg, Reps: reps, BodyKg: &bodyKg})
	if err != nil {
		return 0, err
	}
	return res.Metric, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:      s.started,
		Metric:       s.metricKind.String(),
		Formula:      s.formula.String(),
		CurrentBoard: s.scheduler.Board(s.now()).String(),
		Boards:       map[string]int{},
	}
	if s.store != nil {
		stats.QueueLength = s.queue.Len(ctx)
		stats.QueueCapacity = s.queue.Cap()
		stats.QueueClosed = s.queue.IsClosed()
		stats.TotalEntries = s.store.Total(ctx)
		stats.DedupeEntries = s.deduper.Size()
		stats.Workers = s.pool.Stats()
		for _, b := range s.store.Boards(ctx) {
			stats.Boards[b.String()] = s.store.Count(ctx, b)
		}
		metrics.UpdateDedupeEntries(stats.DedupeEntries)
	}
	metrics.SampleRuntime()
	return stats
}
