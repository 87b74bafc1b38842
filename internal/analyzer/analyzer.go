// Package analyzer turns a Snapshot into recommendations by asking an
// OpenAI-compatible chat model.
//
// The model reply is free text. The first "[" to the last "]" is cut out
// and decoded; only a list where every element carries type, severity,
// message and action is accepted. Anything else means "no
// recommendations", not an error. A greedy cut can swallow prose between
// two bracketed arrays and then fail to decode; that is a known source of
// false negatives and is kept as-is.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/vesaa/sysadvisor/internal/errors"
	"github.com/vesaa/sysadvisor/internal/models"
)

const (
	// DefaultTimeout bounds one remote call.
	DefaultTimeout = 30 * time.Second
	// PromptProcesses is how many entries of each ranking go into the prompt.
	PromptProcesses = 5
	// CPUConcernPercent and MemoryConcernPercent are the thresholds named in
	// the prompt.
	CPUConcernPercent    = 90
	MemoryConcernPercent = 95
)

// Completer sends a single-turn prompt and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Analyzer is the recommendation engine.
type Analyzer struct {
	completer Completer
	timeout   time.Duration
	logger    *slog.Logger
}

// New returns an Analyzer using c. A non-positive timeout falls back to
// DefaultTimeout.
func New(c Completer, timeout time.Duration, logger *slog.Logger) *Analyzer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{completer: c, timeout: timeout, logger: logger}
}

// Analyze asks the model about snap. It returns an ANALYSIS error only when
// the call itself fails; an unusable reply yields nil, nil.
func (a *Analyzer) Analyze(ctx context.Context, snap *models.Snapshot) ([]models.Recommendation, error) {
	prompt, err := BuildPrompt(snap)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeAnalysis, "building prompt", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	reply, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeAnalysis, "requesting analysis", err)
	}

	recs, ok := ParseRecommendations(reply)
	if !ok {
		a.logger.Debug("model reply held no usable recommendations", "reply_len", len(reply))
		return nil, nil
	}
	a.logger.Debug("analysis complete", "recommendations", len(recs), "duration", time.Since(start))
	return recs, nil
}

// BuildPrompt renders the instruction sent to the model.
func BuildPrompt(snap *models.Snapshot) (string, error) {
	cpuTop, err := indentJSON(head(snap.TopCPUProcesses, PromptProcesses))
	if err != nil {
		return "", err
	}
	memTop, err := indentJSON(head(snap.TopMemoryProcesses, PromptProcesses))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Analyze this system performance data and provide specific recommendations.
Only flag issues if they are actually problematic:
- CPU usage over %d%% is concerning
- Memory usage over %d%% is concerning
- Below these thresholds, the system is performing normally; do not invent problems

Current data:
CPU Usage: %.1f%%
Memory Usage: %.1f%%

Top CPU processes:
%s

Top Memory processes:
%s

Provide 1-3 specific, actionable recommendations in JSON format:
[
  {
    "type": "recommendation_type",
    "severity": "info|warning|critical",
    "message": "brief description",
    "action": "specific action to take"
  }
]
`, CPUConcernPercent, MemoryConcernPercent,
		snap.CPU.OverallPercent, snap.Memory.Percent, cpuTop, memTop), nil
}

var requiredKeys = []string{"type", "severity", "message", "action"}

// ParseRecommendations extracts a recommendation list from model output.
// ok is false when no valid list was found.
func ParseRecommendations(reply string) (recs []models.Recommendation, ok bool) {
	start := strings.IndexByte(reply, '[')
	end := strings.LastIndexByte(reply, ']')
	if start < 0 || end < start {
		return nil, false
	}
	raw := []byte(reply[start : end+1])

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}

	recs = make([]models.Recommendation, 0, len(items))
	for _, item := range items {
		if item == nil {
			return nil, false
		}
		fields := make(map[string]string, len(requiredKeys))
		for _, k := range requiredKeys {
			v, present := item[k]
			if !present {
				return nil, false
			}
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return nil, false
			}
			fields[k] = s
		}
		recs = append(recs, models.Recommendation{
			Type:     fields["type"],
			Severity: models.Severity(fields["severity"]),
			Message:  fields["message"],
			Action:   fields["action"],
		})
	}
	return recs, true
}

func head(p []models.ProcessSample, n int) []models.ProcessSample {
	if len(p) > n {
		return p[:n]
	}
	if p == nil {
		return []models.ProcessSample{}
	}
	return p
}

func indentJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
