package monitor

import (
	"errors"
	"time"
)

// ErrEmptySeries is returned by aggregates of a series with no samples.
var ErrEmptySeries = errors.New("empty sample series")

// Sample is one reading taken by a sampler. Time is relative to the first
// sample of the run.
type Sample struct {
	Time time.Duration
	CPU  float64
	RAM  float64
}

// Series is an ordered list of samples from one run.
type Series []Sample

// ExecutionTime is the relative time of the last sample.
func (s Series) ExecutionTime() (time.Duration, error) {
	if len(s) == 0 {
		return 0, ErrEmptySeries
	}
	return s[len(s)-1].Time, nil
}

// AvgCPU is the mean CPU utilisation in percent.
func (s Series) AvgCPU() (float64, error) {
	return s.mean(func(x Sample) float64 { return x.CPU })
}

// AvgRAM is the mean memory utilisation in percent.
func (s Series) AvgRAM() (float64, error) {
	return s.mean(func(x Sample) float64 { return x.RAM })
}

func (s Series) mean(field func(Sample) float64) (float64, error) {
	if len(s) == 0 {
		return 0, ErrEmptySeries
	}
	var sum float64
	for _, x := range s {
		sum += field(x)
	}
	return sum / float64(len(s)), nil
}

// RunRecord is everything a sampler persists for one monitored run.
type RunRecord struct {
	JobID     string
	Name      string
	Run       int
	StartedAt time.Time
	Samples   Series
}

// Summary holds the aggregates of one run.
type Summary struct {
	JobID         string    `json:"job_id"`
	Name          string    `json:"name"`
	Run           int       `json:"run"`
	StartedAt     time.Time `json:"started_at"`
	ExecutionTime float64   `json:"execution_time_seconds"`
	AvgCPU        float64   `json:"avg_cpu_util"`
	AvgRAM        float64   `json:"avg_ram_util"`
	Samples       int       `json:"samples"`
}

// Summary computes the aggregates of the record.
func (r RunRecord) Summary() (Summary, error) {
	exec, err := r.Samples.ExecutionTime()
	if err != nil {
		return Summary{}, err
	}
	cpu, err := r.Samples.AvgCPU()
	if err != nil {
		return Summary{}, err
	}
	ram, err := r.Samples.AvgRAM()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		JobID:         r.JobID,
		Name:          r.Name,
		Run:           r.Run,
		StartedAt:     r.StartedAt.UTC(),
		ExecutionTime: exec.Seconds(),
		AvgCPU:        cpu,
		AvgRAM:        ram,
		Samples:       len(r.Samples),
	}, nil
}
