// Package partition divides a run of work item indices into contiguous,
// non-overlapping ranges, one per worker.
package partition

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkers is returned when fewer than one worker is requested.
	ErrInvalidWorkers = errors.New("worker count must be >= 1")
	// ErrInvalidItems is returned for a negative item count.
	ErrInvalidItems = errors.New("item count must be >= 0")
)

// Range is a closed interval [Start, End] of item indices. A range with
// End == Start-1 is empty.
type Range struct {
	Start int
	End   int
}

// Len reports the number of indices covered by the range.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether i falls inside the range.
func (r Range) Contains(i int) bool {
	return i >= r.Start && i <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}

// Split divides n items across workers. The first n%workers ranges receive one
// extra item; ranges are assigned in input order.
func Split(n, workers int) ([]Range, error) {
	if workers < 1 {
		return nil, fmt.Errorf("split %d items: %w", n, ErrInvalidWorkers)
	}
	if n < 0 {
		return nil, fmt.Errorf("split across %d workers: %w", workers, ErrInvalidItems)
	}
	base, rem := n/workers, n%workers
	ranges := make([]Range, 0, workers)
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < rem {
			size++
		}
		ranges = append(ranges, Range{Start: start, End: start + size - 1})
		start += size
	}
	return ranges, nil
}

// Layout is the outcome of planning a job.
type Layout struct {
	Ranges []Range
	// Inline is set when the load per worker is under the configured floor and
	// the single range must run on the calling goroutine.
	Inline bool
}

// Plan decides how a job of n items runs on workers. When n/workers is below
// minLoad the whole job is one inline range; otherwise it is Split.
func Plan(n, workers, minLoad int) (Layout, error) {
	if workers < 1 {
		return Layout{}, fmt.Errorf("plan %d items: %w", n, ErrInvalidWorkers)
	}
	if n < 0 {
		return Layout{}, fmt.Errorf("plan across %d workers: %w", workers, ErrInvalidItems)
	}
	if n/workers < minLoad {
		return Layout{Ranges: []Range{{Start: 0, End: n - 1}}, Inline: true}, nil
	}
	ranges, err := Split(n, workers)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Ranges: ranges}, nil
}
