package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
)

func TestSaveRunUpsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)

	sum := monitor.Summary{
		JobID:         "job-1",
		Name:          "analyze",
		Run:           2,
		StartedAt:     time.Unix(1700000000, 0).UTC(),
		ExecutionTime: 3.5,
		AvgCPU:        41.2,
		AvgRAM:        63.0,
		Samples:       8,
	}
	mock.ExpectExec("INSERT INTO monitor_runs").
		WithArgs(sum.JobID, sum.Name, sum.Run, sum.StartedAt, sum.ExecutionTime, sum.AvgCPU, sum.AvgRAM, sum.Samples).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.SaveRun(context.Background(), sum))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunWrapsError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "runs")
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO runs").WillReturnError(boom)

	err = store.SaveRun(context.Background(), monitor.Summary{Name: "analyze", Run: 1})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "monitor_runs")
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	rows := mock.NewRows([]string{
		"job_id", "name", "run", "started_at", "execution_time_seconds", "avg_cpu_util", "avg_ram_util", "samples",
	}).
		AddRow("job-1", "analyze", 2, started.Add(time.Minute), 1.5, 10.0, 20.0, 4).
		AddRow("job-1", "analyze", 1, started, 2.5, 30.0, 40.0, 6)
	mock.ExpectQuery("SELECT job_id, name, run").WithArgs(100).WillReturnRows(rows)

	got, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 2, got[0].Run)
	require.InDelta(t, 2.5, got[1].ExecutionTime, 1e-9)
	require.Equal(t, 6, got[1].Samples)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListJobRunsFiltersInQuery(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "monitor_runs")
	require.NoError(t, err)

	rows := mock.NewRows([]string{
		"job_id", "name", "run", "started_at", "execution_time_seconds", "avg_cpu_util", "avg_ram_util", "samples",
	}).AddRow("job-7", "analyze", 1, time.Unix(1700000000, 0).UTC(), 1.0, 5.0, 6.0, 2)
	mock.ExpectQuery("WHERE job_id = \\$1").WithArgs("job-7", 10).WillReturnRows(rows)

	got, err := store.ListJobRuns(context.Background(), "job-7", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "job-7", got[0].JobID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "monitor_runs")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS monitor_runs").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "runs; DROP TABLE x")
	require.Error(t, err)
	_, err = NewWithPool(nil, "runs")
	require.Error(t, err)
}
