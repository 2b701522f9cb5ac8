package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/JakeFAU/concurrent-sentiment/internal/metrics"
	"github.com/JakeFAU/concurrent-sentiment/internal/partition"
)

var (
	// ErrWorkerPanic wraps a panic recovered from a goroutine worker.
	ErrWorkerPanic = errors.New("worker panicked")
	// ErrWorkerProcess wraps a worker process that exited unsuccessfully.
	ErrWorkerProcess = errors.New("worker process failed")
)

// Handle is a running worker that can be joined.
type Handle interface {
	Wait() error
}

// Spawner starts one worker for a range.
type Spawner interface {
	Spawn(ctx context.Context, r partition.Range) (Handle, error)
}

// ThreadSpawner runs each range on its own goroutine in this address space.
type ThreadSpawner struct {
	Work WorkFunc
}

// Spawn implements Spawner.
func (s ThreadSpawner) Spawn(ctx context.Context, r partition.Range) (Handle, error) {
	if s.Work == nil {
		return nil, errors.New("thread spawner has no work function")
	}
	h := &goroutineHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		metrics.IncActiveWorkers()
		defer metrics.DecActiveWorkers()
		defer func() {
			if p := recover(); p != nil {
				h.err = fmt.Errorf("range %s: %w: %v", r, ErrWorkerPanic, p)
			}
		}()
		h.err = s.Work(ctx, r)
	}()
	return h, nil
}

type goroutineHandle struct {
	done chan struct{}
	err  error
}

func (h *goroutineHandle) Wait() error {
	<-h.done
	return h.err
}

// CommandFunc builds the worker process command for a range. Implementations
// must bind the command to ctx (exec.CommandContext) so that a failing sibling
// kills it.
type CommandFunc func(ctx context.Context, r partition.Range) (*exec.Cmd, error)

// ProcessSpawner runs each range in a separate OS process. Results travel back
// through a results.Shared buffer that the command is pointed at.
type ProcessSpawner struct {
	Command CommandFunc
}

// Spawn implements Spawner.
func (s ProcessSpawner) Spawn(ctx context.Context, r partition.Range) (Handle, error) {
	if s.Command == nil {
		return nil, errors.New("process spawner has no command builder")
	}
	cmd, err := s.Command(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("build worker command for %s: %w", r, err)
	}
	tail := &tailBuffer{limit: 4096}
	if cmd.Stderr == nil {
		cmd.Stderr = tail
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker process for %s: %w", r, err)
	}
	return &processHandle{cmd: cmd, r: r, stderr: tail}, nil
}

type processHandle struct {
	cmd    *exec.Cmd
	r      partition.Range
	stderr *tailBuffer
}

func (h *processHandle) Wait() error {
	if err := h.cmd.Wait(); err != nil {
		msg := h.stderr.String()
		if msg == "" {
			return fmt.Errorf("%w: range %s (pid %d): %w", ErrWorkerProcess, h.r, h.cmd.Process.Pid, err)
		}
		return fmt.Errorf("%w: range %s (pid %d): %w: %s", ErrWorkerProcess, h.r, h.cmd.Process.Pid, err, msg)
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append([]byte(nil), t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
