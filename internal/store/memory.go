package store

import (
	"context"
	"sort"
	"sync"

	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps at most capacity runs in process memory, evicting the
// oldest run ID first.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[int64]*Run
	capacity int
}

// DefaultMemoryCapacity bounds a MemoryStore created with capacity <= 0.
const DefaultMemoryCapacity = 10000

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{runs: make(map[int64]*Run), capacity: capacity}
}

func (s *MemoryStore) RecordRun(_ context.Context, run *types.GradingRun) error {
	r := fromRun(run)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.RunID] = r
	if len(s.runs) > s.capacity {
		oldest := r.RunID
		for id := range s.runs {
			if id < oldest {
				oldest = id
			}
		}
		delete(s.runs, oldest)
	}
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID int64) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit, offset int) ([]*Run, int, error) {
	all := s.sorted()
	total := len(all)

	// newest first
	sort.Slice(all, func(i, j int) bool { return all[i].RunID > all[j].RunID })
	if offset >= total {
		return nil, total, nil
	}
	all = all[offset:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryStore) ExerciseDurations(_ context.Context, framework types.FrameworkID, pattern string) ([]Sample, error) {
	var samples []Sample
	for _, r := range s.sorted() {
		if r.Framework == framework && r.Pattern == pattern {
			samples = append(samples, r.sample())
		}
	}
	return samples, nil
}

func (s *MemoryStore) Close() error { return nil }

// sorted returns copies of every run in run ID order
func (s *MemoryStore) sorted() []*Run {
	s.mu.RLock()
	out := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		c := *r
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out
}
