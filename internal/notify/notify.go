// Package notify implements the alert notifier: it reads the pipeline's
// JSON status and mails the text report when a threshold is crossed.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/vesaa/sysadvisor/internal/invoke"
)

// Thresholds are integer percentages in [0,100]. An alert fires when usage
// is strictly above either one.
type Thresholds struct {
	CPU    int
	Memory int
}

// DefaultThresholds matches the levels the analysis prompt calls concerning.
var DefaultThresholds = Thresholds{CPU: 90, Memory: 95}

// Validate rejects out-of-range thresholds.
func (t Thresholds) Validate() error {
	if t.CPU < 0 || t.CPU > 100 {
		return apperrors.New(apperrors.ErrCodeValidation, "CPU threshold must be between 0 and 100")
	}
	if t.Memory < 0 || t.Memory > 100 {
		return apperrors.New(apperrors.ErrCodeValidation, "Memory threshold must be between 0 and 100")
	}
	return nil
}

// Exceeded reports whether cpu or memory is above its threshold.
func (t Thresholds) Exceeded(cpu, memory float64) bool {
	return cpu > float64(t.CPU) || memory > float64(t.Memory)
}

// Outcome describes what one Check did.
type Outcome int

const (
	OutcomeUnavailable Outcome = iota // status could not be read
	OutcomeNormal                     // below thresholds
	OutcomeAlerted                    // mail sent
	OutcomeSendFailed                 // mail attempted and failed
)

// Notifier checks the host once per Check call.
type Notifier struct {
	source     invoke.Source
	mailer     Mailer
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a Notifier.
func New(src invoke.Source, m Mailer, t Thresholds, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{source: src, mailer: m, thresholds: t, logger: logger, now: time.Now}
}

// Subject formats the alert subject for the given local time.
func Subject(t time.Time) string {
	return fmt.Sprintf("System Alert - %s", t.Format("2006-01-02 15:04"))
}

// Check reads the status and sends at most one alert. Failures are logged
// and reported through the Outcome and error; they never panic a loop.
func (n *Notifier) Check(ctx context.Context) (Outcome, error) {
	status, err := n.source.Status(ctx)
	if err != nil {
		n.logger.Warn("could not retrieve system status", "error", err)
		return OutcomeUnavailable, err
	}

	cpu := status.Stats.CPU.OverallPercent
	memory := status.Stats.Memory.Percent
	n.logger.Info("system status", "cpu", fmt.Sprintf("%.1f%%", cpu), "memory", fmt.Sprintf("%.1f%%", memory))

	if !n.thresholds.Exceeded(cpu, memory) {
		return OutcomeNormal, nil
	}

	body, err := n.source.Report(ctx)
	if err != nil {
		n.logger.Warn("could not build system report", "error", err)
		body = fmt.Sprintf("Error getting system report: %v", err)
	}

	if err := n.mailer.Send(ctx, Subject(n.now().Local()), body); err != nil {
		n.logger.Error("failed to send alert email", "error", err)
		return OutcomeSendFailed, err
	}
	n.logger.Info("alert email sent", "cpu", cpu, "memory", memory)
	return OutcomeAlerted, nil
}
