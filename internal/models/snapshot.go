// Package models defines the data shared by the SysAdvisor pipeline, its
// renderers and the satellite utilities. The JSON tags on these types are
// the wire contract read by external processes; do not rename them.
package models

import "time"

// MaxRanked is the number of processes kept in each ranking.
const MaxRanked = 10

// Snapshot is one immutable sample of host resource state.
type Snapshot struct {
	Timestamp          time.Time       `json:"timestamp"`
	CPU                CPU             `json:"cpu"`
	Memory             Memory          `json:"memory"`
	TopCPUProcesses    []ProcessSample `json:"top_cpu_processes"`
	TopMemoryProcesses []ProcessSample `json:"top_memory_processes"`
}

// CPU holds utilization measured over the sampling window.
type CPU struct {
	OverallPercent float64   `json:"overall_percent"` // 0-100
	PerCore        []float64 `json:"per_core"`        // one entry per logical core
}

// Memory holds virtual memory figures in bytes.
type Memory struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Percent   float64 `json:"percent"`
}

// ProcessSample is a per-process row of a ranking. Numeric fields are nil
// when the OS would not report them.
type ProcessSample struct {
	PID           int32    `json:"pid"`
	Name          string   `json:"name"`
	CPUPercent    *float64 `json:"cpu_percent"`
	MemoryPercent *float64 `json:"memory_percent"`
	ResidentBytes *uint64  `json:"resident_bytes"`
}

// CPU returns the CPU share, 0 when absent.
func (p ProcessSample) CPU() float64 {
	if p.CPUPercent == nil {
		return 0
	}
	return *p.CPUPercent
}

// Mem returns the memory share, 0 when absent.
func (p ProcessSample) Mem() float64 {
	if p.MemoryPercent == nil {
		return 0
	}
	return *p.MemoryPercent
}

// RSS returns the resident set size, 0 when absent.
func (p ProcessSample) RSS() uint64 {
	if p.ResidentBytes == nil {
		return 0
	}
	return *p.ResidentBytes
}

// TopCPU returns the highest ranked CPU process, if any.
func (s *Snapshot) TopCPU() (ProcessSample, bool) {
	if len(s.TopCPUProcesses) == 0 {
		return ProcessSample{}, false
	}
	return s.TopCPUProcesses[0], true
}

// TopMemory returns the highest ranked memory process, if any.
func (s *Snapshot) TopMemory() (ProcessSample, bool) {
	if len(s.TopMemoryProcesses) == 0 {
		return ProcessSample{}, false
	}
	return s.TopMemoryProcesses[0], true
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Uint64 returns a pointer to v.
func Uint64(v uint64) *uint64 { return &v }
