package models

import (
	"time"

	"gorm.io/gorm"
)

// SnapshotRecord is one row of the recorded history. It keeps the same
// columns as the CSV time series.
type SnapshotRecord struct {
	gorm.Model

	CollectedAt time.Time `gorm:"index;not null" json:"collected_at"`

	// ── Host ─────────────────────────────────────────────────────────────────
	CPUPercent    float64 `json:"cpu_percent"`    // 0-100
	MemoryPercent float64 `json:"memory_percent"` // 0-100
	MemoryUsed    uint64  `json:"memory_used"`    // bytes
	MemoryTotal   uint64  `json:"memory_total"`   // bytes

	// ── Leaders ──────────────────────────────────────────────────────────────
	TopCPUProcess      string  `json:"top_cpu_process"`
	TopCPUPercent      float64 `json:"top_cpu_percent"`
	TopMemoryProcess   string  `json:"top_memory_process"`
	TopMemoryPercent   float64 `json:"top_memory_percent"`
	RecommendationsCnt int     `json:"recommendations"`
}

// NewSnapshotRecord flattens an AnalysisResult into a history row.
func NewSnapshotRecord(r *AnalysisResult) *SnapshotRecord {
	s := r.Stats
	rec := &SnapshotRecord{
		CollectedAt:        s.Timestamp,
		CPUPercent:         s.CPU.OverallPercent,
		MemoryPercent:      s.Memory.Percent,
		MemoryUsed:         s.Memory.Used,
		MemoryTotal:        s.Memory.Total,
		RecommendationsCnt: len(r.Recommendations),
	}
	if p, ok := s.TopCPU(); ok {
		rec.TopCPUProcess = p.Name
		rec.TopCPUPercent = p.CPU()
	}
	if p, ok := s.TopMemory(); ok {
		rec.TopMemoryProcess = p.Name
		rec.TopMemoryPercent = p.Mem()
	}
	return rec
}
