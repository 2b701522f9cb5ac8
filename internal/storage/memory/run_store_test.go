package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
)

func TestRunStoreListsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRunStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for run := 1; run <= 3; run++ {
		require.NoError(t, store.SaveRun(ctx, monitor.Summary{
			JobID:     "job",
			Name:      "analyze",
			Run:       run,
			StartedAt: base.Add(time.Duration(run) * time.Minute),
		}))
	}
	// same key replaces
	require.NoError(t, store.SaveRun(ctx, monitor.Summary{
		JobID: "job", Name: "analyze", Run: 2, StartedAt: base.Add(2 * time.Minute), Samples: 9,
	}))

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []int{3, 2, 1}, []int{all[0].Run, all[1].Run, all[2].Run})
	require.Equal(t, 9, all[1].Samples)

	top, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, 3, top[0].Run)
}

func TestRunStoreListJobRunsFiltersBeforeLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewRunStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRun(ctx, monitor.Summary{JobID: "old", Name: "analyze", Run: 1, StartedAt: base}))
	for run := 1; run <= 5; run++ {
		require.NoError(t, store.SaveRun(ctx, monitor.Summary{
			JobID: "new", Name: "analyze", Run: run, StartedAt: base.Add(time.Duration(run) * time.Hour),
		}))
	}

	old, err := store.ListJobRuns(ctx, "old", 2)
	require.NoError(t, err)
	require.Len(t, old, 1)
	require.Equal(t, "old", old[0].JobID)

	recent, err := store.ListJobRuns(ctx, "new", 2)
	require.NoError(t, err)
	require.Equal(t, []int{5, 4}, []int{recent[0].Run, recent[1].Run})

	none, err := store.ListJobRuns(ctx, "missing", 0)
	require.NoError(t, err)
	require.Empty(t, none)
}
