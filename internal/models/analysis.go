package models

import "errors"

var errMissingStats = errors.New("analysis result has no stats")

// Severity tags a Recommendation.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Recommendation is one suggestion returned by the analysis model.
type Recommendation struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Action   string   `json:"action"`
}

// AnalysisResult pairs a Snapshot with the recommendations derived from it.
// Recommendations is nil when analysis was skipped, failed, or produced
// nothing usable; it serializes as null in that case.
type AnalysisResult struct {
	Stats           *Snapshot        `json:"stats"`
	Recommendations []Recommendation `json:"recommendations"`

	// Note explains missing recommendations in the text report.
	Note string `json:"-"`
}

// Validate checks a decoded document before satellites act on it. Only
// stats is mandatory; absent process metrics default to 0 via the
// ProcessSample accessors.
func (r *AnalysisResult) Validate() error {
	if r == nil || r.Stats == nil {
		return errMissingStats
	}
	return nil
}
