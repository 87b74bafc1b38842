package collector

import (
	"context"
	"errors"
	"io/fs"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo is what a Source reports for one live process. Nil fields
// could not be read.
type ProcessInfo struct {
	PID           int32
	Name          string
	CPUSeconds    *float64 // user + system CPU time consumed so far
	MemoryPercent *float64
	RSS           *uint64
}

// Source abstracts the OS queries the Collector needs.
type Source interface {
	CPUTimes(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error)
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	Processes(ctx context.Context) ([]ProcessInfo, error)
}

// HostSource reads the local host through gopsutil.
type HostSource struct{}

// CPUTimes returns cumulative CPU times, aggregated or per logical core.
func (HostSource) CPUTimes(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error) {
	return cpu.TimesWithContext(ctx, perCPU)
}

// VirtualMemory returns system memory usage.
func (HostSource) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

// Processes enumerates running processes in OS order. Processes that vanish
// during the scan are dropped; unreadable fields are left nil.
func (HostSource) Processes(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		if info, ok := readProcess(ctx, p.Pid, p); ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// processReader is the per-process subset of *process.Process.
type processReader interface {
	NameWithContext(ctx context.Context) (string, error)
	TimesWithContext(ctx context.Context) (*cpu.TimesStat, error)
	MemoryPercentWithContext(ctx context.Context) (float32, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
}

// readProcess reads one process. ok is false when it exited mid-scan.
// Access-denied fields are left empty.
func readProcess(ctx context.Context, pid int32, p processReader) (info ProcessInfo, ok bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		if gone(err) {
			return ProcessInfo{}, false
		}
		name = "" // access denied
	}

	info = ProcessInfo{PID: pid, Name: name}
	if t, err := p.TimesWithContext(ctx); err == nil && t != nil {
		v := t.User + t.System
		info.CPUSeconds = &v
	} else if gone(err) {
		return ProcessInfo{}, false
	}
	if pct, err := p.MemoryPercentWithContext(ctx); err == nil {
		v := float64(pct)
		info.MemoryPercent = &v
	}
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		v := mi.RSS
		info.RSS = &v
	}
	return info, true
}

// gone reports whether err means the process exited mid-scan.
func gone(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) || errors.Is(err, fs.ErrNotExist)
}
