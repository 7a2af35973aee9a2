package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/okian/liftboard/internal/domain/model"
	"github.com/okian/liftboard/internal/domain/ranking"
	"github.com/okian/liftboard/internal/domain/types"
	"github.com/okian/liftboard/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Each board is a treap keyed by ranking.Less, so in-order traversal yields
// the leaderboard from best to worst and subtree sizes give positions.

// treap node
type node struct {
	rec   Record
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, rec Record, prio uint64) *node {
	if n == nil {
		return &node{rec: rec, prio: prio, size: 1}
	}
	if ranking.Less(rec.Candidate, n.rec.Candidate) {
		n.left = insert(n.left, rec, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, rec, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, c ranking.Candidate) *node {
	if n == nil {
		return nil
	}
	switch {
	case ranking.Less(c, n.rec.Candidate):
		n.left = deleteNode(n.left, c)
	case ranking.Less(n.rec.Candidate, c):
		n.right = deleteNode(n.right, c)
	default:
		// Rotate the higher-priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, c)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, c)
		}
	}
	fix(n)
	return n
}

// ahead counts the nodes that rank strictly before c.
func ahead(n *node, c ranking.Candidate) int {
	count := 0
	for n != nil {
		switch {
		case ranking.Less(c, n.rec.Candidate):
			n = n.left
		case ranking.Less(n.rec.Candidate, c):
			count += nsize(n.left) + 1
			n = n.right
		default:
			return count + nsize(n.left)
		}
	}
	return count
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, toEntry(n.rec, len(*out)+1))
	}
	collectTopN(n.right, limit, out)
}

func toEntry(rec Record, rank int) types.Entry {
	return types.Entry{
		Rank:           rank,
		AthleteID:      rec.Candidate.ID,
		Metric:         rec.Candidate.Metric,
		AchievedAt:     rec.Candidate.AchievedAt,
		PersonalRecord: rec.Candidate.PersonalRecord,
		SubmissionID:   rec.SubmissionID,
		LiftedKg:       rec.LiftedKg,
		Reps:           rec.Reps,
	}
}

// board is one week's leaderboard.
type board struct {
	root *node
	byID map[string]Record
}

// TreapStore keeps one treap per board behind a single lock. It starts no
// goroutines.
type TreapStore struct {
	mu      sync.RWMutex
	boards  map[model.BoardKey]*board
	entries int
	rng     *rand.Rand
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		boards: make(map[model.BoardKey]*board),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // balance only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateBest implements Store.UpdateBest with O(log n) expected time.
func (s *TreapStore) UpdateBest(ctx context.Context, key model.BoardKey, rec Record) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if rec.Candidate.ID == "" {
		return false, fmt.Errorf("%w: empty athlete id", model.ErrInvalidInput)
	}

	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(sinceMs(start)) }()

	s.mu.Lock()
	b, ok := s.boards[key]
	if !ok {
		b = &board{byID: make(map[string]Record)}
		s.boards[key] = b
	}
	old, exists := b.byID[rec.Candidate.ID]
	if exists {
		if !ranking.Less(rec.Candidate, old.Candidate) {
			s.mu.Unlock()
			return false, nil
		}
		b.root = deleteNode(b.root, old.Candidate)
	} else {
		s.entries++
	}
	b.byID[rec.Candidate.ID] = rec
	b.root = insert(b.root, rec, s.rng.Uint64())
	boards, entries := len(s.boards), s.entries
	s.mu.Unlock()

	if !exists {
		metrics.UpdateBoardTotals(boards, entries)
	}
	return true, nil
}

// Rank returns the athlete's entry in O(log n).
func (s *TreapStore) Rank(_ context.Context, key model.BoardKey, athleteID string) (types.Entry, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(sinceMs(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[key]
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %s on %s", ErrNotFound, athleteID, key)
	}
	rec, ok := b.byID[athleteID]
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %s on %s", ErrNotFound, athleteID, key)
	}
	return toEntry(rec, ahead(b.root, rec.Candidate)+1), nil
}

// TopN returns the top n entries of a board. An unknown board is empty.
func (s *TreapStore) TopN(_ context.Context, key model.BoardKey, n int) ([]types.Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(sinceMs(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[key]
	if !ok {
		return []types.Entry{}, nil
	}
	out := make([]types.Entry, 0, min(n, nsize(b.root)))
	collectTopN(b.root, n, &out)
	return out, nil
}

// Count returns the number of athletes on a board.
func (s *TreapStore) Count(_ context.Context, key model.BoardKey) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.boards[key]; ok {
		return len(b.byID)
	}
	return 0
}

// Total returns the number of entries across all boards.
func (s *TreapStore) Total(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries
}

// Boards lists the boards in chronological order.
func (s *TreapStore) Boards(_ context.Context) []model.BoardKey {
	s.mu.RLock()
	keys := make([]model.BoardKey, 0, len(s.boards))
	for k := range s.boards {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	slices.SortFunc(keys, func(a, b model.BoardKey) int {
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return a.Week - b.Week
	})
	return keys
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
