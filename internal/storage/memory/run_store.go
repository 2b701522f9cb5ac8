package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
)

type runKey struct {
	jobID string
	name  string
	run   int
}

// RunStore keeps run summaries keyed by job, name and run number. Saving the
// same key twice replaces the earlier summary.
type RunStore struct {
	mu   sync.RWMutex
	runs map[runKey]monitor.Summary
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[runKey]monitor.Summary)}
}

// SaveRun stores a summary.
func (s *RunStore) SaveRun(_ context.Context, sum monitor.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runKey{sum.JobID, sum.Name, sum.Run}] = sum
	return nil
}

// ListRuns returns up to limit summaries, most recent first. limit <= 0
// returns all of them.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]monitor.Summary, error) {
	return s.list(limit, func(monitor.Summary) bool { return true }), nil
}

// ListJobRuns is ListRuns restricted to one job.
func (s *RunStore) ListJobRuns(_ context.Context, jobID string, limit int) ([]monitor.Summary, error) {
	return s.list(limit, func(sum monitor.Summary) bool { return sum.JobID == jobID }), nil
}

func (s *RunStore) list(limit int, keep func(monitor.Summary) bool) []monitor.Summary {
	s.mu.RLock()
	out := make([]monitor.Summary, 0, len(s.runs))
	for _, sum := range s.runs {
		if keep(sum) {
			out = append(out, sum)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].Run > out[j].Run
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
