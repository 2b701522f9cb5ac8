package monitor

import (
	"fmt"
	"sync"

	"github.com/prometheus/procfs"
)

// Probe reads host-wide CPU and memory utilisation in percent.
type Probe interface {
	Read() (cpu, ram float64, err error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func() (cpu, ram float64, err error)

// Read implements Probe.
func (f ProbeFunc) Read() (float64, float64, error) { return f() }

// ProcfsProbe reads /proc/stat and /proc/meminfo. CPU utilisation is measured
// between consecutive reads, so the first Read covers the time since the probe
// was created.
type ProcfsProbe struct {
	fs procfs.FS

	mu   sync.Mutex
	prev cpuTimes
}

type cpuTimes struct {
	busy  float64
	total float64
}

// NewProcfsProbe opens the proc filesystem at mountPoint (procfs.DefaultMountPoint
// when empty) and takes the CPU baseline.
func NewProcfsProbe(mountPoint string) (*ProcfsProbe, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", mountPoint, err)
	}
	p := &ProcfsProbe{fs: fs}
	if p.prev, err = p.cpu(); err != nil {
		return nil, err
	}
	return p, nil
}

// Read implements Probe.
func (p *ProcfsProbe) Read() (float64, float64, error) {
	now, err := p.cpu()
	if err != nil {
		return 0, 0, err
	}
	p.mu.Lock()
	prev := p.prev
	p.prev = now
	p.mu.Unlock()

	var cpu float64
	if dt := now.total - prev.total; dt > 0 {
		cpu = clampPercent((now.busy - prev.busy) / dt * 100)
	}

	ram, err := p.ram()
	if err != nil {
		return 0, 0, err
	}
	return cpu, ram, nil
}

func (p *ProcfsProbe) cpu() (cpuTimes, error) {
	stat, err := p.fs.Stat()
	if err != nil {
		return cpuTimes{}, fmt.Errorf("read cpu stat: %w", err)
	}
	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	busy := c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	return cpuTimes{busy: busy, total: busy + idle}, nil
}

func (p *ProcfsProbe) ram() (float64, error) {
	mi, err := p.fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("read meminfo: %w", err)
	}
	if mi.MemTotal == nil || *mi.MemTotal == 0 {
		return 0, fmt.Errorf("read meminfo: MemTotal missing")
	}
	total := float64(*mi.MemTotal)
	var avail float64
	switch {
	case mi.MemAvailable != nil:
		avail = float64(*mi.MemAvailable)
	case mi.MemFree != nil:
		avail = float64(*mi.MemFree)
		if mi.Buffers != nil {
			avail += float64(*mi.Buffers)
		}
		if mi.Cached != nil {
			avail += float64(*mi.Cached)
		}
	}
	return clampPercent((total - avail) / total * 100), nil
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
