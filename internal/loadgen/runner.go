package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/liftboard/internal/domain/types"
	"github.com/okian/liftboard/pkg/logger"
)

const (
	directoryPermission = 0o750
	progressInterval    = time.Second
)

// ErrMismatch reports that the service disagreed with the local ranking.
var ErrMismatch = errors.New("leaderboard mismatch")

// Run generates lifts, submits them, waits for the workers to drain and
// verifies every board the lifts landed on.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	log := logger.Get().Named("loadgen")
	start := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)

	var before serviceStats
	if err := c.getJSON(ctx, "/stats", &before); err != nil {
		return nil, fmt.Errorf("service stats: %w", err)
	}
	if !before.Started {
		return nil, errors.New("service pipeline is not started")
	}
	log.Info(ctx, "starting load run",
		logger.String("url", cfg.BaseURL),
		logger.Int("athletes", cfg.Athletes),
		logger.Int("lifts", cfg.Lifts),
		logger.Int("workers", cfg.Workers),
		logger.String("metric", before.Metric),
		logger.String("formula", before.Formula))

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-negative clock value
	}
	lifts := generate(cfg, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), time.Now())
	report := &Report{Generated: len(lifts)}

	accepted, boards := submit(ctx, log, c, cfg, lifts, report)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("submission interrupted: %w", err)
	}

	if err := waitForDrain(ctx, c, cfg, before.Workers.Processed+report.Accepted); err != nil {
		return report, err
	}

	exp, err := newExpectation(before.Metric, before.Formula)
	if err != nil {
		return report, err
	}
	for board := range boards {
		if err := verifyBoard(ctx, c, cfg, exp, board, accepted, report); err != nil {
			return report, err
		}
		report.Boards++
	}

	if cfg.OutputFile != "" {
		if err := saveLifts(cfg.OutputFile, lifts); err != nil {
			log.Warn(ctx, "failed to save lifts", logger.Error(err))
		}
	}

	report.Duration = time.Since(start)
	if secs := report.Duration.Seconds(); secs > 0 {
		report.LiftsPerSec = float64(report.Generated) / secs
	}
	log.Info(ctx, "load run finished", logger.Any("report", report))

	if len(report.Mismatches) > 0 {
		return report, fmt.Errorf("%w: %d disagreements, first: %s", ErrMismatch, len(report.Mismatches), report.Mismatches[0])
	}
	return report, nil
}

// placed is a lift the service took ownership of and the board it landed on.
type placed struct {
	Lift
	board string
}

// submit posts lifts through a worker pool. It returns the placed lifts keyed
// by submission id and the set of boards they landed on.
func submit(ctx context.Context, log logger.Logger, c *client, cfg *Config, lifts []Lift, report *Report) (map[string]placed, map[string]struct{}) {
	var (
		mu       sync.Mutex
		accepted = make(map[string]placed, len(lifts))
		boards   = make(map[string]struct{})
		sent     atomic.Int64
	)

	work := make(chan Lift, max(cfg.Workers, 1)*2)
	var wg sync.WaitGroup
	for range max(cfg.Workers, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for lift := range work {
				var receipt types.Receipt
				status, err := c.postJSON(ctx, "/submissions", lift, &receipt)
				switch {
				case status == http.StatusAccepted || status == http.StatusOK:
					if status == http.StatusAccepted {
						atomic.AddInt64(&report.Accepted, 1)
					} else {
						atomic.AddInt64(&report.Duplicates, 1)
					}
					mu.Lock()
					accepted[lift.SubmissionID] = placed{Lift: lift, board: receipt.Board}
					boards[receipt.Board] = struct{}{}
					mu.Unlock()
				case status == http.StatusTooManyRequests:
					atomic.AddInt64(&report.Rejected, 1)
				default:
					atomic.AddInt64(&report.Failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "submission failed", logger.String("submission_id", lift.SubmissionID), logger.Error(err))
					}
				}
				sent.Add(1)
			}
		}()
	}

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
feed:
	for _, lift := range lifts {
		select {
		case <-ctx.Done():
			break feed
		case <-ticker.C:
			log.Info(ctx, "submission progress", logger.Int64("sent", sent.Load()), logger.Int("total", len(lifts)))
			select {
			case work <- lift:
			case <-ctx.Done():
				break feed
			}
		case work <- lift:
		}
	}
	close(work)
	wg.Wait()
	return accepted, boards
}

// waitForDrain polls /stats until the pool has processed target submissions.
func waitForDrain(ctx context.Context, c *client, cfg *Config, target int64) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.DrainTimeout)
	defer cancel()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		var st serviceStats
		if err := c.getJSON(ctx, "/stats", &st); err == nil && st.Workers.Processed >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d processed submissions: %w", target, ctx.Err())
		case <-ticker.C:
		}
	}
}

func saveLifts(path string, lifts []Lift) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // operator-supplied output path
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(lifts); err != nil {
		_ = f.Close()
		return fmt.Errorf("write lifts: %w", err)
	}
	return f.Close()
}
