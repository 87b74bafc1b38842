package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/vesaa/sysadvisor/internal/logging"
	"github.com/vesaa/sysadvisor/internal/models"
)

// fakeSource replays two readings: calls before the window get the first,
// calls after get the second.
type fakeSource struct {
	totals  [2]cpu.TimesStat
	cores   [2][]cpu.TimesStat
	procs   [2][]ProcessInfo
	vm      *mem.VirtualMemoryStat
	cpuErr  error
	memErr  error
	procErr error

	totalCalls int
	coreCalls  int
	procCalls  int
}

func (f *fakeSource) CPUTimes(_ context.Context, perCPU bool) ([]cpu.TimesStat, error) {
	if f.cpuErr != nil {
		return nil, f.cpuErr
	}
	if perCPU {
		i := min(f.coreCalls, 1)
		f.coreCalls++
		return f.cores[i], nil
	}
	i := min(f.totalCalls, 1)
	f.totalCalls++
	return []cpu.TimesStat{f.totals[i]}, nil
}

func (f *fakeSource) VirtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	if f.memErr != nil {
		return nil, f.memErr
	}
	return f.vm, nil
}

func (f *fakeSource) Processes(context.Context) ([]ProcessInfo, error) {
	if f.procErr != nil {
		return nil, f.procErr
	}
	i := min(f.procCalls, 1)
	f.procCalls++
	return f.procs[i], nil
}

func secs(v float64) *float64 { return &v }

func newTestCollector(src Source) *Collector {
	c := NewCollector(src, time.Second, logging.Discard())
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.now = func() time.Time { return clock }
	c.sleep = func(context.Context, time.Duration) error {
		clock = clock.Add(time.Second)
		return nil
	}
	return c
}

func baseSource() *fakeSource {
	return &fakeSource{
		totals: [2]cpu.TimesStat{
			{User: 100, System: 50, Idle: 850},
			{User: 160, System: 70, Idle: 870}, // 80 busy of 100
		},
		cores: [2][]cpu.TimesStat{
			{{User: 10, Idle: 90}, {User: 10, Idle: 90}},
			{{User: 60, Idle: 90}, {User: 10, Idle: 140}},
		},
		procs: [2][]ProcessInfo{
			{
				{PID: 1, Name: "init", CPUSeconds: secs(1)},
				{PID: 2, Name: "db", CPUSeconds: secs(10)},
			},
			{
				{PID: 1, Name: "init", CPUSeconds: secs(1.1), MemoryPercent: secs(0.5)},
				{PID: 2, Name: "db", CPUSeconds: secs(10.5), MemoryPercent: secs(20), RSS: models.Uint64(1 << 30)},
				{PID: 3, Name: "new", CPUSeconds: secs(99), MemoryPercent: secs(1)},
			},
		},
		vm: &mem.VirtualMemoryStat{Total: 16 << 30, Available: 8 << 30, Used: 6 << 30, UsedPercent: 37.5},
	}
}

func TestCollect(t *testing.T) {
	c := newTestCollector(baseSource())

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 80.0, snap.CPU.OverallPercent, 0.001)
	require.Len(t, snap.CPU.PerCore, 2)
	assert.InDelta(t, 100.0, snap.CPU.PerCore[0], 0.001)
	assert.InDelta(t, 0.0, snap.CPU.PerCore[1], 0.001)

	assert.Equal(t, uint64(16<<30), snap.Memory.Total)
	assert.Equal(t, uint64(8<<30), snap.Memory.Available)
	assert.Equal(t, uint64(6<<30), snap.Memory.Used)
	assert.Equal(t, 37.5, snap.Memory.Percent)

	require.Len(t, snap.TopCPUProcesses, 3)
	assert.Equal(t, int32(2), snap.TopCPUProcesses[0].PID)
	assert.InDelta(t, 50.0, snap.TopCPUProcesses[0].CPU(), 0.001)
	assert.Equal(t, int32(1), snap.TopCPUProcesses[1].PID)
	assert.Nil(t, snap.TopCPUProcesses[2].CPUPercent, "process born mid-window has no cpu share")

	require.Len(t, snap.TopMemoryProcesses, 3)
	assert.Equal(t, "db", snap.TopMemoryProcesses[0].Name)
	assert.Equal(t, uint64(1<<30), snap.TopMemoryProcesses[0].RSS())
	assert.Equal(t, "new", snap.TopMemoryProcesses[1].Name)
	assert.Equal(t, "init", snap.TopMemoryProcesses[2].Name)
}

func TestCollectFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeSource)
	}{
		{"cpu", func(f *fakeSource) { f.cpuErr = errors.New("cpu api unavailable") }},
		{"memory", func(f *fakeSource) { f.memErr = errors.New("meminfo unreadable") }},
		{"processes", func(f *fakeSource) { f.procErr = errors.New("permission denied") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := baseSource()
			tt.mutate(src)

			snap, err := newTestCollector(src).Collect(context.Background())
			assert.Nil(t, snap)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCollection))
		})
	}
}

func TestCollectCancelled(t *testing.T) {
	c := NewCollector(baseSource(), time.Hour, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := c.Collect(ctx)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank(t *testing.T) {
	var samples []models.ProcessSample
	for i := 0; i < 15; i++ {
		s := models.ProcessSample{PID: int32(i)}
		switch {
		case i%3 == 0:
			// absent metric sorts as 0
		case i%3 == 1:
			s.CPUPercent = models.Float64(5)
		default:
			s.CPUPercent = models.Float64(float64(i))
		}
		samples = append(samples, s)
	}

	top := rank(samples, models.ProcessSample.CPU)
	require.Len(t, top, models.MaxRanked)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].CPU(), top[i].CPU())
	}
	// PIDs 1, 4, 5, 7, 10 and 13 tie at 5.0 and keep enumeration order.
	want := []int32{14, 11, 8, 1, 4, 5, 7, 10, 13, 2}
	var got []int32
	for _, s := range top {
		got = append(got, s.PID)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, int32(0), samples[0].PID, "input left untouched")
}

func TestBusyPercent(t *testing.T) {
	prev := cpu.TimesStat{User: 10, Idle: 10}
	assert.Equal(t, 0.0, busyPercent(prev, prev))
	assert.Equal(t, 50.0, busyPercent(prev, cpu.TimesStat{User: 15, Idle: 15}))
	assert.Equal(t, 100.0, busyPercent(prev, cpu.TimesStat{User: 20, Idle: 10, Iowait: 0}))
}

func TestPerCoreMismatchedLengths(t *testing.T) {
	prev := []cpu.TimesStat{{User: 1, Idle: 1}}
	cur := []cpu.TimesStat{{User: 2, Idle: 1}, {User: 5, Idle: 5}}
	assert.Len(t, perCorePercent(prev, cur), 1)
}
