// Package collector implements the snapshot collection subsystem for
// SysAdvisor. It uses gopsutil for cross-platform system telemetry.
//
// A collection is all-or-nothing: if CPU, memory or process enumeration
// fails, no Snapshot is returned.
package collector

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/vesaa/sysadvisor/internal/models"
)

// DefaultInterval is the CPU measurement window.
const DefaultInterval = time.Second

// Collector gathers host snapshots.
type Collector struct {
	src      Source
	interval time.Duration
	logger   *slog.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewCollector creates a Collector reading from src. A non-positive
// interval falls back to DefaultInterval.
func NewCollector(src Source, interval time.Duration, logger *slog.Logger) *Collector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		src:      src,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Collect measures CPU over the configured window and returns a snapshot.
// It blocks for roughly one interval.
func (c *Collector) Collect(ctx context.Context) (*models.Snapshot, error) {
	totalBefore, err := c.src.CPUTimes(ctx, false)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "reading cpu times", err)
	}
	coresBefore, err := c.src.CPUTimes(ctx, true)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "reading per-core cpu times", err)
	}
	procsBefore, err := c.src.Processes(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "enumerating processes", err)
	}
	start := c.now()

	if err := c.sleep(ctx, c.interval); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "cpu sampling interrupted", err)
	}

	totalAfter, err := c.src.CPUTimes(ctx, false)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "reading cpu times", err)
	}
	coresAfter, err := c.src.CPUTimes(ctx, true)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "reading per-core cpu times", err)
	}
	procsAfter, err := c.src.Processes(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "enumerating processes", err)
	}
	elapsed := c.now().Sub(start)

	vm, err := c.src.VirtualMemory(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCollection, "reading memory", err)
	}
	if len(totalBefore) == 0 || len(totalAfter) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeCollection, "cpu times unavailable")
	}

	samples := processSamples(procsBefore, procsAfter, elapsed)
	snap := &models.Snapshot{
		Timestamp: c.now().Round(0),
		CPU: models.CPU{
			OverallPercent: busyPercent(totalBefore[0], totalAfter[0]),
			PerCore:        perCorePercent(coresBefore, coresAfter),
		},
		Memory: models.Memory{
			Total:     vm.Total,
			Available: vm.Available,
			Used:      vm.Used,
			Percent:   vm.UsedPercent,
		},
		TopCPUProcesses:    rank(samples, models.ProcessSample.CPU),
		TopMemoryProcesses: rank(samples, models.ProcessSample.Mem),
	}

	c.logger.Debug("snapshot collected",
		"cpu", snap.CPU.OverallPercent,
		"memory", snap.Memory.Percent,
		"processes", len(samples))
	return snap, nil
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// busyPercent is the non-idle share of CPU time between two readings.
func busyPercent(prev, cur cpu.TimesStat) float64 {
	dt := total(cur) - total(prev)
	if dt <= 0 {
		return 0
	}
	di := (cur.Idle + cur.Iowait) - (prev.Idle + prev.Iowait)
	return clampPercent(100 * (1 - di/dt))
}

func total(t cpu.TimesStat) float64 {
	return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
}

func perCorePercent(prev, cur []cpu.TimesStat) []float64 {
	n := len(cur)
	if len(prev) < n {
		n = len(prev)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = busyPercent(prev[i], cur[i])
	}
	return out
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

// processSamples converts the second scan into samples. CPU share is the
// CPU time a process used over the window; processes missing from the
// first scan have no CPU share.
func processSamples(before, after []ProcessInfo, elapsed time.Duration) []models.ProcessSample {
	prev := make(map[int32]float64, len(before))
	for _, p := range before {
		if p.CPUSeconds != nil {
			prev[p.PID] = *p.CPUSeconds
		}
	}

	secs := elapsed.Seconds()
	out := make([]models.ProcessSample, 0, len(after))
	for _, p := range after {
		s := models.ProcessSample{
			PID:           p.PID,
			Name:          p.Name,
			MemoryPercent: p.MemoryPercent,
			ResidentBytes: p.RSS,
		}
		if was, ok := prev[p.PID]; ok && p.CPUSeconds != nil && secs > 0 {
			pct := 100 * (*p.CPUSeconds - was) / secs
			if pct < 0 {
				pct = 0 // pid reuse
			}
			s.CPUPercent = &pct
		}
		out = append(out, s)
	}
	return out
}

// rank returns the top MaxRanked samples by key, descending. Equal keys keep
// enumeration order.
func rank(samples []models.ProcessSample, key func(models.ProcessSample) float64) []models.ProcessSample {
	sorted := make([]models.ProcessSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) > key(sorted[j]) })
	if len(sorted) > models.MaxRanked {
		sorted = sorted[:models.MaxRanked]
	}
	return sorted
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
