// Package worker turns queued submissions into board updates.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/liftboard/internal/adapters/repository"
	"github.com/okian/liftboard/internal/domain/model"
	"github.com/okian/liftboard/internal/domain/ranking"
	"github.com/okian/liftboard/internal/domain/scoring"
	"github.com/okian/liftboard/pkg/logger"
	"github.com/okian/liftboard/pkg/metrics"
)

const defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()

var (
	// ErrShutdownTimeout is returned when workers were stopped before the queue drained.
	ErrShutdownTimeout = errors.New("worker pool shutdown timed out")
	// ErrUndrained is returned when the workers exited while submissions were still queued.
	ErrUndrained = errors.New("worker pool exited with submissions queued")
)

// Updater offers scored records to the boards.
type Updater interface {
	UpdateBest(ctx context.Context, board model.BoardKey, rec repository.Record) (bool, error)
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Submission
}

// Worker processes submissions until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called
	// or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the submission in hand.
	Shutdown(ctx context.Context) error
}

// counters tracks submission outcomes across a pool.
type counters struct {
	processed atomic.Int64
	updated   atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time view of pool outcomes.
type Stats struct {
	Workers   int   `json:"workers"`
	Processed int64 `json:"processed"`
	Updated   int64 `json:"updated"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	scorer   scoring.Scorer
	updater  Updater
	name     string
	counters *counters

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer scoring.Scorer, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		updater:  updater,
		name:     "worker",
		counters: &counters{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			metrics.AddWorkerActive(1)
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error processing submission", logger.Error(err))
			}
			metrics.AddWorkerActive(-1)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// process scores one submission and offers it to its board. Submissions that
// cannot be scored are skipped and counted, not retried. The processed counter
// moves only after the board reflects the submission.
func (w *InMemoryWorker) process(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: value received from channel
	start := time.Now()
	defer func() {
		w.counters.processed.Add(1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	scoreStart := time.Now()
	res, err := w.scorer.Score(ctx, scoring.Input{
		AthleteID: s.AthleteID,
		LiftedKg:  s.LiftedKg,
		Reps:      s.Reps,
		BodyKg:    s.BodyKg,
	})
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Microseconds()) / 1000)

	switch {
	case errors.Is(err, scoring.ErrNoBodyMass):
		w.counters.skipped.Add(1)
		metrics.RecordSubmissionSkipped("no_body_mass")
		w.logger.Debug(ctx, "skipping submission without body mass",
			logger.String("submission_id", s.SubmissionID),
			logger.String("athlete_id", s.AthleteID),
		)
		return nil
	case errors.Is(err, model.ErrInvalidInput):
		w.counters.skipped.Add(1)
		metrics.RecordSubmissionSkipped("invalid_input")
		w.logger.Warn(ctx, "skipping unscorable submission",
			logger.String("submission_id", s.SubmissionID),
			logger.Error(err),
		)
		return nil
	case err != nil:
		w.counters.failed.Add(1)
		metrics.RecordScoringError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return fmt.Errorf("score submission %s: %w", s.SubmissionID, err)
	}

	updated, err := w.updater.UpdateBest(ctx, s.Board, repository.Record{
		Candidate: ranking.Candidate{
			ID:             s.AthleteID,
			Metric:         res.Metric,
			AchievedAt:     s.TS,
			PersonalRecord: s.PersonalRecord,
		},
		SubmissionID: s.SubmissionID,
		LiftedKg:     s.LiftedKg,
		Reps:         s.Reps,
	})
	if err != nil {
		w.counters.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "leaderboard_error")
		return fmt.Errorf("update board %s for submission %s: %w", s.Board, s.SubmissionID, err)
	}
	if updated {
		w.counters.updated.Add(1)
		metrics.RecordLeaderboardUpdate()
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	counters *counters
	wg       sync.WaitGroup
	logger   logger.Logger
}

// NewPool creates a new worker pool. A count below one selects a multiple of
// the CPU count.
func NewPool(workerCount int, q Queue, scorer scoring.Scorer, updater Updater) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		counters: &counters{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, scorer, updater,
			WithName("worker-"+strconv.Itoa(i)),
			withCounters(p.counters),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stats returns the pool's outcome counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Processed: p.counters.processed.Load(),
		Updated:   p.counters.updated.Load(),
		Skipped:   p.counters.skipped.Load(),
		Failed:    p.counters.failed.Load(),
	}
}

// Shutdown closes the queue, if it can be closed, and waits for the workers
// to drain it. When ctx ends first the workers are stopped and the remaining
// submissions are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		if left := p.queued(ctx); left > 0 {
			p.dropped(left)
			return fmt.Errorf("%w: %d left", ErrUndrained, left)
		}
		return nil
	case <-ctx.Done():
		for _, w := range p.workers {
			w.stop()
		}
		<-drained
		left := p.queued(context.WithoutCancel(ctx))
		p.dropped(left)
		return fmt.Errorf("%w: %d left: %w", ErrShutdownTimeout, left, ctx.Err())
	}
}

// queued reports what is still buffered when the queue can tell.
func (p *Pool) queued(ctx context.Context) int {
	if l, ok := p.queue.(interface{ Len(context.Context) int }); ok {
		return l.Len(ctx)
	}
	return 0
}

func (p *Pool) dropped(n int) {
	metrics.RecordErrorByComponent("worker", "dropped_on_shutdown")
	p.logger.Warn(context.Background(), "worker pool stopped before queue drained", logger.Int("dropped", n))
}
