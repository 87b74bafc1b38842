// Package pipeline runs collect → analyze and repeats it on an interval.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/vesaa/sysadvisor/internal/models"
)

// Collector produces a fresh Snapshot.
type Collector interface {
	Collect(ctx context.Context) (*models.Snapshot, error)
}

// Analyzer derives recommendations from a Snapshot.
type Analyzer interface {
	Analyze(ctx context.Context, snap *models.Snapshot) ([]models.Recommendation, error)
}

// Pipeline pairs a Collector with an optional Analyzer.
type Pipeline struct {
	collector Collector
	analyzer  Analyzer
	logger    *slog.Logger
}

// New builds a Pipeline. analyzer may be nil, in which case results carry
// no recommendations.
func New(c Collector, a Analyzer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{collector: c, analyzer: a, logger: logger}
}

// Run collects one snapshot and analyzes it. A collection failure is
// returned as-is; an analysis failure is logged and leaves the result
// without recommendations.
func (p *Pipeline) Run(ctx context.Context) (*models.AnalysisResult, error) {
	snap, err := p.collector.Collect(ctx)
	if err != nil {
		p.logger.Error("collecting snapshot failed", "error", err)
		return nil, err
	}

	result := &models.AnalysisResult{Stats: snap}
	if p.analyzer == nil {
		result.Note = "analysis disabled"
		return result, nil
	}

	recs, err := p.analyzer.Analyze(ctx, snap)
	if err != nil {
		p.logger.Warn("analysis failed; continuing without recommendations", "error", err)
		result.Note = err.Error()
		return result, nil
	}
	result.Recommendations = recs
	return result, nil
}
