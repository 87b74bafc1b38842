// Package report renders an AnalysisResult for people (text) or programs
// (JSON). Rendering is pure: the same result always produces the same bytes.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/vesaa/sysadvisor/internal/models"
)

// Mode selects an output format.
type Mode int

const (
	ModeText Mode = iota
	ModeJSON
)

// ClearScreen resets an ANSI terminal before a watch-mode redraw.
const ClearScreen = "\033[2J\033[H"

// reportRows is how many entries of each ranking the text report shows.
const reportRows = 5

// Render writes result in the given mode.
func Render(w io.Writer, result *models.AnalysisResult, mode Mode) error {
	if mode == ModeJSON {
		return WriteJSON(w, result)
	}
	return WriteText(w, result)
}

// RenderWatch is Render for continuous output: text is preceded by a screen
// clear, JSON is emitted as-is so the stream stays parseable.
func RenderWatch(w io.Writer, result *models.AnalysisResult, mode Mode) error {
	if mode == ModeText {
		if _, err := io.WriteString(w, ClearScreen); err != nil {
			return err
		}
	}
	return Render(w, result, mode)
}

// WriteJSON writes the wire document {"stats": …, "recommendations": …}.
func WriteJSON(w io.Writer, result *models.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// WriteText writes the human report.
func WriteText(w io.Writer, result *models.AnalysisResult) error {
	var b strings.Builder
	writeStats(&b, result.Stats)
	writeRecommendations(&b, result)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeStats(b *strings.Builder, s *models.Snapshot) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(b, "\n%s\n", rule)
	if s == nil {
		fmt.Fprintf(b, "SYSTEM MONITOR - Unknown time\n%s\n\n  (no statistics available)\n", rule)
		return
	}
	fmt.Fprintf(b, "SYSTEM MONITOR - %s\n%s\n", s.Timestamp.Format(time.RFC3339), rule)

	fmt.Fprintf(b, "\nCPU Usage: %.1f%%\n", s.CPU.OverallPercent)
	fmt.Fprintf(b, "Memory Usage: %.1f%% (%s/%s)\n",
		s.Memory.Percent, FormatBytes(float64(s.Memory.Used)), FormatBytes(float64(s.Memory.Total)))

	b.WriteString("\nTop CPU Processes:\n")
	for i, p := range head(s.TopCPUProcesses) {
		fmt.Fprintf(b, "  %d. %s (PID: %d) - %.1f%%\n", i+1, displayName(p), p.PID, p.CPU())
	}
	if len(s.TopCPUProcesses) == 0 {
		b.WriteString("  (no process data)\n")
	}

	b.WriteString("\nTop Memory Processes:\n")
	for i, p := range head(s.TopMemoryProcesses) {
		mb := float64(p.RSS()) / 1024 / 1024
		fmt.Fprintf(b, "  %d. %s (PID: %d) - %.1fMB (%.1f%%)\n", i+1, displayName(p), p.PID, mb, p.Mem())
	}
	if len(s.TopMemoryProcesses) == 0 {
		b.WriteString("  (no process data)\n")
	}
}

func writeRecommendations(b *strings.Builder, r *models.AnalysisResult) {
	b.WriteString("\nRECOMMENDATIONS\n")
	b.WriteString(strings.Repeat("-", 30) + "\n")

	switch {
	case r.Note != "":
		fmt.Fprintf(b, "\n  (recommendations unavailable: %s)\n", r.Note)
		return
	case r.Recommendations == nil:
		b.WriteString("\n  (no recommendations)\n")
		return
	case len(r.Recommendations) == 0:
		b.WriteString("\n  System is performing normally.\n")
		return
	}

	for _, rec := range r.Recommendations {
		fmt.Fprintf(b, "\n%s %s\n", SeverityTag(rec.Severity), orDefault(rec.Message, "No message"))
		fmt.Fprintf(b, "   Action: %s\n", orDefault(rec.Action, "No action specified"))
	}
}

// SeverityTag returns the bracketed label for s; unknown values read [INFO].
func SeverityTag(s models.Severity) string {
	switch models.Severity(strings.ToLower(string(s))) {
	case models.SeverityCritical:
		return "[CRITICAL]"
	case models.SeverityWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

var byteUnits = []string{"B", "KB", "MB", "GB"}

// FormatBytes renders n with 1024-based units and one decimal place.
// Negative, NaN and infinite input render as "0 B".
func FormatBytes(n float64) string {
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return "0 B"
	}
	for _, unit := range byteUnits {
		if n < 1024 {
			return fmt.Sprintf("%.1f %s", n, unit)
		}
		n /= 1024
	}
	return fmt.Sprintf("%.1f TB", n)
}

func head(p []models.ProcessSample) []models.ProcessSample {
	if len(p) > reportRows {
		return p[:reportRows]
	}
	return p
}

func displayName(p models.ProcessSample) string {
	return orDefault(p.Name, "Unknown")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
