package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
	"github.com/JakeFAU/concurrent-sentiment/internal/metrics"
)

// persistTimeout bounds how long a stopped sampler may spend writing its run.
const persistTimeout = 30 * time.Second

// ErrSamplerUsed is returned when Run is called on a sampler that has already
// been started.
var ErrSamplerUsed = errors.New("sampler already used")

// State is the lifecycle position of a Sampler.
type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Clock abstracts time for the sampler.
type Clock interface {
	Now() time.Time
}

// Sampler periodically records CPU and memory utilisation until stopped, then
// persists what it saw. A Sampler runs once.
type Sampler struct {
	name     string
	run      int
	jobID    string
	interval time.Duration
	probe    Probe
	clock    Clock
	writer   RecordWriter
	logger   *zap.Logger
	state    atomic.Int32
}

// SamplerOption customises a Sampler.
type SamplerOption func(*Sampler)

// WithJobID tags the persisted record with a job identifier.
func WithJobID(id string) SamplerOption {
	return func(s *Sampler) { s.jobID = id }
}

// NewSampler constructs an idle sampler for one run of the named operation.
func NewSampler(
	name string,
	run int,
	interval time.Duration,
	probe Probe,
	clock Clock,
	writer RecordWriter,
	logger *zap.Logger,
	opts ...SamplerOption,
) *Sampler {
	s := &Sampler{
		name:     name,
		run:      run,
		interval: interval,
		probe:    probe,
		clock:    clock,
		writer:   writer,
		logger:   logging.OrNop(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the lifecycle position.
func (s *Sampler) State() State {
	return State(s.state.Load())
}

// Run samples immediately and then once per interval until ctx is cancelled.
// Once stopped it writes the run record and returns it. A run without a single
// successful sample returns ErrEmptySeries and writes nothing.
func (s *Sampler) Run(ctx context.Context) (RunRecord, error) {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return RunRecord{}, ErrSamplerUsed
	}
	defer s.state.Store(int32(Stopped))

	log := s.logger.With(zap.String("name", s.name), zap.Int("run", s.run))
	rec := RunRecord{JobID: s.jobID, Name: s.name, Run: s.run}

	capture := func() {
		now := s.clock.Now()
		cpu, ram, err := s.probe.Read()
		if err != nil {
			log.Warn("sample skipped", zap.Error(err))
			return
		}
		if len(rec.Samples) == 0 {
			rec.StartedAt = now
		}
		rec.Samples = append(rec.Samples, Sample{Time: now.Sub(rec.StartedAt), CPU: cpu, RAM: ram})
		metrics.ObserveSample(cpu, ram)
	}

	capture()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			capture()
		}
	}

	if len(rec.Samples) == 0 {
		return rec, fmt.Errorf("run %d of %s: %w", s.run, s.name, ErrEmptySeries)
	}

	log.Debug("sampler stopped", zap.Int("samples", len(rec.Samples)))
	if s.writer == nil {
		return rec, nil
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.writer.WriteRun(writeCtx, rec); err != nil {
		return rec, fmt.Errorf("persist run %d of %s: %w", s.run, s.name, err)
	}
	return rec, nil
}
