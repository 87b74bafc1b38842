// Package recorder implements the metrics appender: each Record call reads
// the pipeline's JSON status and appends one row to the CSV time series,
// and optionally to the history store.
package recorder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vesaa/sysadvisor/internal/invoke"
	"github.com/vesaa/sysadvisor/internal/models"
)

// MaxConsecutiveFailures stops a monitoring run.
const MaxConsecutiveFailures = 5

// HistoryAppender stores a result; *store.Store satisfies it.
type HistoryAppender interface {
	Append(ctx context.Context, r *models.AnalysisResult) (*models.SnapshotRecord, error)
}

// Recorder ties a status source to its sinks.
type Recorder struct {
	source  invoke.Source
	csv     *CSVWriter
	history HistoryAppender
	logger  *slog.Logger
}

// New builds a Recorder. history may be nil.
func New(src invoke.Source, csvPath string, history HistoryAppender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		source:  src,
		csv:     &CSVWriter{Path: csvPath},
		history: history,
		logger:  logger,
	}
}

// Record performs one status read and append.
func (r *Recorder) Record(ctx context.Context) error {
	status, err := r.source.Status(ctx)
	if err != nil {
		r.logger.Warn("could not retrieve system data", "error", err)
		return err
	}

	if err := r.csv.Append(status); err != nil {
		r.logger.Error("failed to log data", "path", r.csv.Path, "error", err)
		return fmt.Errorf("appending csv row: %w", err)
	}

	if r.history != nil {
		if _, err := r.history.Append(ctx, status); err != nil {
			r.logger.Error("failed to store history row", "error", err)
			return fmt.Errorf("appending history row: %w", err)
		}
	}

	r.logger.Info("logged data", "path", r.csv.Path)
	return nil
}
