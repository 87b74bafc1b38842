package collector

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	name     string
	nameErr  error
	times    *cpu.TimesStat
	timesErr error
	memPct   float32
	memErr   error
	rss      uint64
}

func (f fakeProcess) NameWithContext(context.Context) (string, error) { return f.name, f.nameErr }

func (f fakeProcess) TimesWithContext(context.Context) (*cpu.TimesStat, error) {
	return f.times, f.timesErr
}

func (f fakeProcess) MemoryPercentWithContext(context.Context) (float32, error) {
	return f.memPct, f.memErr
}

func (f fakeProcess) MemoryInfoWithContext(context.Context) (*process.MemoryInfoStat, error) {
	if f.memErr != nil {
		return nil, f.memErr
	}
	return &process.MemoryInfoStat{RSS: f.rss}, nil
}

func TestGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not running", process.ErrorProcessNotRunning, true},
		{"wrapped not running", fmt.Errorf("reading status: %w", process.ErrorProcessNotRunning), true},
		{"wrapped not exist", fmt.Errorf("open /proc/42/stat: %w", fs.ErrNotExist), true},
		{"permission denied", fmt.Errorf("open /proc/1/exe: %w", os.ErrPermission), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gone(tt.err))
		})
	}
}

func TestReadProcess(t *testing.T) {
	ctx := context.Background()
	denied := fmt.Errorf("open /proc/1/exe: %w", os.ErrPermission)
	vanished := fmt.Errorf("open /proc/7/stat: %w", fs.ErrNotExist)

	t.Run("readable", func(t *testing.T) {
		info, ok := readProcess(ctx, 10, fakeProcess{
			name:   "postgres",
			times:  &cpu.TimesStat{User: 1.5, System: 0.5},
			memPct: 2.5,
			rss:    4096,
		})
		require.True(t, ok)
		assert.Equal(t, int32(10), info.PID)
		assert.Equal(t, "postgres", info.Name)
		require.NotNil(t, info.CPUSeconds)
		assert.InDelta(t, 2.0, *info.CPUSeconds, 1e-9)
		require.NotNil(t, info.MemoryPercent)
		assert.InDelta(t, 2.5, *info.MemoryPercent, 1e-6)
		require.NotNil(t, info.RSS)
		assert.Equal(t, uint64(4096), *info.RSS)
	})

	t.Run("access denied keeps an empty-name entry", func(t *testing.T) {
		info, ok := readProcess(ctx, 1, fakeProcess{
			nameErr:  denied,
			timesErr: denied,
			memErr:   denied,
		})
		require.True(t, ok)
		assert.Equal(t, int32(1), info.PID)
		assert.Empty(t, info.Name)
		assert.Nil(t, info.CPUSeconds)
		assert.Nil(t, info.MemoryPercent)
		assert.Nil(t, info.RSS)
	})

	t.Run("exited before name is skipped", func(t *testing.T) {
		_, ok := readProcess(ctx, 7, fakeProcess{nameErr: vanished})
		assert.False(t, ok)
	})

	t.Run("exited before cpu times is skipped", func(t *testing.T) {
		_, ok := readProcess(ctx, 8, fakeProcess{name: "short-lived", timesErr: process.ErrorProcessNotRunning})
		assert.False(t, ok)
	})
}
